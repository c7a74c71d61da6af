package streamsync

import (
	"context"
	"errors"

	"github.com/akinalp/teamchat/models"
)

var (
	// ErrFetchInFlight, aynı akış için zaten süren bir geriye doğru istek varken döner.
	ErrFetchInFlight = errors.New("streamsync: fetch already in flight")

	// ErrMutationRejected, sunucu mutasyonu reddettiğinde döner; iyimser durum geri alınmıştır.
	ErrMutationRejected = errors.New("streamsync: mutation rejected")

	// ErrStaleContext, cevabın ait olduğu bağlam artık geçerli değil (akış atıldı,
	// istek iptal edildi, geçici kayıt yok). Hata değildir, sessizce yok sayılır.
	ErrStaleContext = errors.New("streamsync: stale context")
)

// MessageService, mesaj akışının uzak sözleşmeleri.
// Workspace kapsamı implementasyonun işidir; client.MessagesClient bunu karşılar.
type MessageService interface {
	ListMessages(ctx context.Context, channelID, cursor string, limit int) (*models.MessagePage, error)
	GetThread(ctx context.Context, messageID string) (*models.ThreadListing, error)
	CreateMessage(ctx context.Context, req models.CreateMessageRequest) (*models.MessageRecord, error)
	UpdateMessage(ctx context.Context, req models.UpdateMessageRequest) (*models.UpdateMessageResult, error)
	ToggleReaction(ctx context.Context, req models.ToggleReactionRequest) (*models.ToggleReactionResult, error)
}
