package models

import "time"

// SessionState, bir presence bağlantısının kalıcı side-table kaydı.
//
// Bağlantı nesnesinin üzerinde gizli durum taşımak yerine, iliştirilen kullanıcı
// connection ID ile anahtarlanan ayrı bir tabloda tutulur. Süreç askıya alınıp
// bağlantı aynı ID ile geri döndüğünde kullanıcı buradan geri yüklenir.
type SessionState struct {
	ConnectionID string    `json:"connection_id"`
	RoomID       string    `json:"room_id"`
	User         *User     `json:"user"`
	UpdatedAt    time.Time `json:"updated_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
