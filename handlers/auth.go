// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'lar ince tutulur:
// 1. Request'i parse et (path, query, JSON body)
// 2. Service katmanını çağır
// 3. Sonucu APIResponse zarfıyla yaz
//
// İş mantığı ve workspace sınırı kontrolü service'lerdedir.
package handlers

import (
	"net/http"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/services"
)

// contextKey, context.WithValue için özel key tipi.
type contextKey string

// UserContextKey, auth middleware'ın context'e koyduğu *models.User'ın key'i.
const UserContextKey contextKey = "user"

// userFromContext, auth middleware'ın eklediği kullanıcıyı döner.
func userFromContext(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// AuthHandler, kimlik endpoint'leri. Login/register dış servistedir;
// burada sadece token'daki kimlik okunur ve token yenilenir.
type AuthHandler struct {
	tokenService services.TokenService
}

// NewAuthHandler, constructor.
func NewAuthHandler(tokenService services.TokenService) *AuthHandler {
	return &AuthHandler{tokenService: tokenService}
}

// Me godoc
// GET /api/me
// Token'daki kullanıcıyı döner.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// Refresh godoc
// POST /api/auth/refresh
// Geçerli bir token ile aynı kimliğe süresi yenilenmiş yeni bir token verir.
//
// Response: { "accessToken": "..." }
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	token, err := h.tokenService.Issue(user)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"accessToken": token})
}
