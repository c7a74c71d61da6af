package repository

import (
	"context"
	"time"

	"github.com/akinalp/teamchat/models"
)

// MessageRepository, mesaj veritabanı işlemleri için interface.
//
// ListTopLevel cursor-based pagination kullanır: cursor, istemcinin bildiği en
// eski mesajın ID'sidir; dönen satırlar ondan kesinlikle daha eskidir ve
// en yeniden eskiye (created_at DESC, id DESC) sıralıdır. Boş cursor en yenilerden başlar.
//
// Dönen kayıtlarda RepliesCount doludur, Reactions boştur; gruplama servis katmanında yapılır.
type MessageRepository interface {
	Create(ctx context.Context, message *models.MessageRecord) error
	GetByID(ctx context.Context, id string) (*models.MessageRecord, error)
	ListTopLevel(ctx context.Context, channelID, cursor string, limit int) ([]models.MessageRecord, error)
	ListThread(ctx context.Context, parentID string) ([]models.MessageRecord, error)
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error
}
