package repository

import (
	"context"
	"time"

	"github.com/akinalp/teamchat/models"
)

// ReactionRepository, emoji reaction veritabanı işlemleri için interface.
//
// Toggle tek bir kullanıcı+emoji çiftini ekler ya da kaldırır; added true ise eklendi.
// ListByMessageIDs reaction satırlarını ekleme sırasıyla döner; emoji gruplaması
// (ilk görülme sırası, count, reactedByMe) servis katmanındadır; reactedByMe
// isteği yapan kullanıcıya göre değişir.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID, userID, emoji string, at time.Time) (added bool, err error)
	ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.Reaction, error)
}
