// Package services, iş mantığı katmanı.
//
// Her servis exported bir interface, unexported bir struct ve interface dönen
// bir constructor'dan oluşur. Handler'lar concrete tiplere değil interface'lere bağımlıdır.
package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// TokenService, access token üretme ve doğrulama.
//
// Kimlik doğrulamanın kendisi (login, parola, OAuth) dış bir servistir.
// Bu servis sadece HS256 imzalı token'ı doğrular; Issue geliştirme ve
// testlerde o dış servisin yerine geçer.
type TokenService interface {
	Issue(user *models.User) (string, error)
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

type tokenService struct {
	secret    []byte
	issuer    string
	accessExp time.Duration
	now       func() time.Time
}

// NewTokenService, constructor.
func NewTokenService(secret, issuer string, accessExp time.Duration) TokenService {
	return &tokenService{
		secret:    []byte(secret),
		issuer:    issuer,
		accessExp: accessExp,
		now:       time.Now,
	}
}

func (s *tokenService) Issue(user *models.User) (string, error) {
	if !user.Valid() {
		return "", fmt.Errorf("%w: user id is required", pkg.ErrBadRequest)
	}

	now := s.now()
	claims := &models.TokenClaims{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken, imzayı, süreyi ve issuer'ı doğrular.
func (s *tokenService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	return claims, nil
}
