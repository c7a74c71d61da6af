package repository

import (
	"context"

	"github.com/akinalp/teamchat/models"
)

// SessionStore, presence bağlantılarının side-table'ı: connection ID → iliştirilen kullanıcı.
//
// Hub canlı snapshot'ı kendi bellekteki oturumlarından hesaplar; bu tablo sadece
// askıya alınıp aynı ID ile geri dönen bir bağlantının kullanıcısını geri yüklemek içindir.
// Kayıtlar TTL ile düşer. Get, bulunamayan veya süresi dolan kayıt için pkg.ErrNotFound döner.
type SessionStore interface {
	Put(ctx context.Context, state models.SessionState) error
	Get(ctx context.Context, connectionID string) (*models.SessionState, error)
	Delete(ctx context.Context, connectionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
