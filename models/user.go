// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Hem veritabanı satırlarının hem de wire üzerinden giden JSON'un şeklini belirler.
// `json:"displayName"` gibi tag'ler camelCase tutulur; presence protokolü ve
// mesaj akışı istemcileri bu alan adlarını bekler.
package models

import "strings"

// User, bir bağlantıya iliştirilen kimlik.
// Oturum boyunca değişmez (immutable); değişmesi gerekirse yeni add-user gönderilir.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
}

// Valid, presence protokolünde kabul edilebilir bir kullanıcı olup olmadığını döner.
// ID zorunludur; dedup anahtarı odur.
func (u *User) Valid() bool {
	return u != nil && strings.TrimSpace(u.ID) != ""
}

// Clone, User'ın bağımsız bir kopyasını döner.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
