package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/pkg/cache"
	"github.com/akinalp/teamchat/repository"
)

// channelCacheTTL, kanal → workspace eşlemesinin bellekte tutulma süresi.
const channelCacheTTL = 30 * time.Second

// ChannelService, workspace/kanal iş mantığı.
//
// Authorize, workspace sınırı kontrolüdür: kanal bu workspace'e ait değilse
// (ya da hiç yoksa) ErrForbidden döner. Mesaj servisinin her operasyonu bundan geçer.
type ChannelService interface {
	CreateWorkspace(ctx context.Context, name string) (string, error)
	Create(ctx context.Context, workspaceID, name string) (*models.Channel, error)
	List(ctx context.Context, workspaceID string) ([]models.Channel, error)
	Authorize(ctx context.Context, workspaceID, channelID string) error
}

type channelService struct {
	channelRepo repository.ChannelRepository
	owners      *cache.TTLCache[string, string]
}

// NewChannelService, constructor. Interface döner.
func NewChannelService(channelRepo repository.ChannelRepository) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		owners:      cache.New[string, string](channelCacheTTL, time.Minute),
	}
}

func (s *channelService) CreateWorkspace(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: workspace name is required", pkg.ErrBadRequest)
	}
	id := uuid.NewString()
	if err := s.channelRepo.CreateWorkspace(ctx, id, name); err != nil {
		return "", err
	}
	return id, nil
}

func (s *channelService) Create(ctx context.Context, workspaceID, name string) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 80 {
		return nil, fmt.Errorf("%w: channel name must be 1-80 characters", pkg.ErrBadRequest)
	}

	ch := &models.Channel{WorkspaceID: workspaceID, Name: name}
	if err := s.channelRepo.Create(ctx, ch); err != nil {
		return nil, err
	}
	s.owners.Set(ch.ID, workspaceID)
	return ch, nil
}

func (s *channelService) List(ctx context.Context, workspaceID string) ([]models.Channel, error) {
	channels, err := s.channelRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	return channels, nil
}

func (s *channelService) Authorize(ctx context.Context, workspaceID, channelID string) error {
	owner, err := s.owners.GetOrLoad(channelID, func() (string, error) {
		ch, err := s.channelRepo.GetByID(ctx, channelID)
		if err != nil {
			return "", err
		}
		return ch.WorkspaceID, nil
	})
	if errors.Is(err, pkg.ErrNotFound) {
		return fmt.Errorf("%w: channel is not part of this workspace", pkg.ErrForbidden)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve channel: %w", err)
	}
	if owner != workspaceID {
		return fmt.Errorf("%w: channel is not part of this workspace", pkg.ErrForbidden)
	}
	return nil
}
