package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT payload'ı.
//
// Kimlik doğrulama dış bir servistir; bu servis imzalı token'dan kullanıcıyı
// okur ve mesajın yazar alanlarını buradan doldurur. Kullanıcı tablosu tutulmaz.
type TokenClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
	jwt.RegisteredClaims
}

// User, claim'lerden presence ve mesaj katmanının kullandığı User'ı üretir.
func (c *TokenClaims) User() *User {
	return &User{
		ID:          c.UserID,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		AvatarURL:   c.AvatarURL,
	}
}
