package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// TokenValidator, bağlantı kabulünde token doğrulaması için gereken tek metod.
// services.TokenService bunu karşılar; ws paketi services'e bağımlı olmaz.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// resumeParam, istemcinin önceki connection ID'sini taşıyan query parametresi.
const resumeParam = "_pk"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin kontrolü CORS katmanında; presence istemcileri farklı origin'lerden bağlanır.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler, presence bağlantı isteklerini kabul eden HTTP handler'ı.
type Handler struct {
	hub          *Hub
	tokens       TokenValidator
	requireToken bool
}

// NewHandler, yeni bir presence handler oluşturur.
// requireToken true ise ?token= parametresi upgrade'den önce doğrulanır.
func NewHandler(hub *Hub, tokens TokenValidator, requireToken bool) *Handler {
	return &Handler{
		hub:          hub,
		tokens:       tokens,
		requireToken: requireToken,
	}
}

// HandleConnection, GET /parties/chat/{room} isteğini WebSocket'e yükseltir.
//
// Flow:
//  1. Oda adı "workspace-<id>" mi? Değilse 404.
//  2. Token gerekiyorsa doğrula. Geçersizse 401.
//  3. Connection ID: ?_pk verildiyse o, yoksa yeni UUID.
//  4. Resume ise side-table'dan kullanıcıyı oku.
//  5. Upgrade, attach. Canlı bir ID tekrar gelirse policy-violation ile kapat.
//  6. WritePump ayrı goroutine'de, ReadPump bu goroutine'de.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room")
	if !models.ValidRoom(roomID) {
		pkg.ErrorWithMessage(w, http.StatusNotFound, "unknown room")
		return
	}

	if h.requireToken {
		token := r.URL.Query().Get("token")
		if token == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "missing token")
			return
		}
		if _, err := h.tokens.ValidateAccessToken(token); err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}

	connectionID := strings.TrimSpace(r.URL.Query().Get(resumeParam))
	var restored *models.User
	if connectionID != "" {
		restored = h.hub.restore(r.Context(), roomID, connectionID)
	} else {
		connectionID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws.handler").Str("room", roomID).Msg("upgrade failed")
		return
	}

	client := newClient(h.hub, conn, roomID, connectionID)
	if err := h.hub.connect(client, restored); err != nil {
		code := websocket.CloseGoingAway
		if errors.Is(err, pkg.ErrInvalidState) {
			code = websocket.ClosePolicyViolation
		}
		log.Warn().Err(err).Str("module", "ws.handler").Str("room", roomID).Str("conn", connectionID).Msg("connection rejected")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	log.Debug().Str("module", "ws.handler").Str("room", roomID).Str("conn", connectionID).
		Bool("resumed", restored != nil).Msg("connection accepted")

	go client.WritePump()
	client.ReadPump()
}
