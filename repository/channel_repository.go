package repository

import (
	"context"

	"github.com/akinalp/teamchat/models"
)

// ChannelRepository, workspace ve kanal kayıtları için interface.
// Mesaj servisi bunu sadece "bu kanal hangi workspace'e ait" sorusu için kullanır.
type ChannelRepository interface {
	CreateWorkspace(ctx context.Context, id, name string) error
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Channel, error)
}
