package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/repository"
)

// MessageService, mesaj akışı iş mantığı interface'i.
//
// Okuma sözleşmesi: List en yeniden eskiye bir sayfa döner; NextCursor sayfa
// doluysa (len == limit) son öğenin ID'sidir, değilse boştur.
// Yazma sözleşmeleri: Create (thread cevabı dahil), Update (sadece yazar), thread listesi.
type MessageService interface {
	List(ctx context.Context, workspaceID string, viewer *models.User, q models.ListMessagesQuery) (*models.MessagePage, error)
	Create(ctx context.Context, workspaceID string, author *models.User, req *models.CreateMessageRequest) (*models.MessageRecord, error)
	Update(ctx context.Context, workspaceID string, editor *models.User, req *models.UpdateMessageRequest) (*models.UpdateMessageResult, error)
	ListThread(ctx context.Context, workspaceID string, viewer *models.User, messageID string) (*models.ThreadListing, error)
}

type messageService struct {
	messageRepo  repository.MessageRepository
	reactionRepo repository.ReactionRepository
	channels     ChannelService
	now          func() time.Time
}

// NewMessageService, constructor.
// reactionRepo: listelenen mesajların reaction'larını tek sorguda yüklemek için.
func NewMessageService(
	messageRepo repository.MessageRepository,
	reactionRepo repository.ReactionRepository,
	channels ChannelService,
) MessageService {
	return &messageService{
		messageRepo:  messageRepo,
		reactionRepo: reactionRepo,
		channels:     channels,
		now:          time.Now,
	}
}

func (s *messageService) List(ctx context.Context, workspaceID string, viewer *models.User, q models.ListMessagesQuery) (*models.MessagePage, error) {
	if err := q.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}
	if err := s.channels.Authorize(ctx, workspaceID, q.ChannelID); err != nil {
		return nil, err
	}

	items, err := s.messageRepo.ListTopLevel(ctx, q.ChannelID, q.Cursor, q.Limit)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown cursor", pkg.ErrBadRequest)
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachReactions(ctx, items, viewer.ID); err != nil {
		return nil, err
	}

	page := &models.MessagePage{Items: items}
	if len(items) == q.Limit {
		page.NextCursor = items[len(items)-1].ID
	}
	return page, nil
}

// Create, yeni bir mesaj ya da thread cevabı oluşturur.
//
// Thread cevabında ebeveyn aynı kanalda bulunmalı ve kendisi bir cevap olmamalıdır;
// böylece thread derinliği 1'de kalır. Aksi halde ErrBadRequest.
func (s *messageService) Create(ctx context.Context, workspaceID string, author *models.User, req *models.CreateMessageRequest) (*models.MessageRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}
	if err := s.channels.Authorize(ctx, workspaceID, req.ChannelID); err != nil {
		return nil, err
	}

	if req.ThreadID != nil {
		parent, err := s.messageRepo.GetByID(ctx, *req.ThreadID)
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: thread parent not found", pkg.ErrBadRequest)
		}
		if err != nil {
			return nil, err
		}
		if parent.ChannelID != req.ChannelID || parent.IsReply() {
			return nil, fmt.Errorf("%w: thread parent must be a top-level message in the same channel", pkg.ErrBadRequest)
		}
	}

	now := s.now().UTC()
	message := &models.MessageRecord{
		ID:           uuid.NewString(),
		Content:      req.Content,
		ImageURL:     req.ImageURL,
		AuthorID:     author.ID,
		AuthorName:   displayName(author),
		AuthorEmail:  author.Email,
		AuthorAvatar: author.AvatarURL,
		ChannelID:    req.ChannelID,
		ThreadID:     req.ThreadID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Reactions:    []models.ReactionGroup{},
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// Update, mesaj içeriğini değiştirir. Sadece yazar düzenleyebilir.
// Başka workspace'e ait mesaj bulunamamış gibi davranır.
func (s *messageService) Update(ctx context.Context, workspaceID string, editor *models.User, req *models.UpdateMessageRequest) (*models.UpdateMessageResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	message, err := s.visibleMessage(ctx, workspaceID, req.MessageID)
	if err != nil {
		return nil, err
	}
	if message.AuthorID != editor.ID {
		return nil, fmt.Errorf("%w: only the author can edit this message", pkg.ErrForbidden)
	}

	if err := s.messageRepo.UpdateContent(ctx, message.ID, req.Content, s.now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.messageRepo.GetByID(ctx, message.ID)
	if err != nil {
		return nil, err
	}
	grouped, err := s.reactionsFor(ctx, updated.ID, editor.ID)
	if err != nil {
		return nil, err
	}
	updated.Reactions = grouped

	return &models.UpdateMessageResult{
		Message: *updated,
		CanEdit: updated.AuthorID == editor.ID,
	}, nil
}

// ListThread, ebeveyni ve cevaplarını (eskiden yeniye) döner.
func (s *messageService) ListThread(ctx context.Context, workspaceID string, viewer *models.User, messageID string) (*models.ThreadListing, error) {
	parent, err := s.visibleMessage(ctx, workspaceID, messageID)
	if err != nil {
		return nil, err
	}

	replies, err := s.messageRepo.ListThread(ctx, parent.ID)
	if err != nil {
		return nil, err
	}

	all := append([]models.MessageRecord{*parent}, replies...)
	if err := s.attachReactions(ctx, all, viewer.ID); err != nil {
		return nil, err
	}

	return &models.ThreadListing{Parent: all[0], Messages: all[1:]}, nil
}

// visibleMessage, mesajı getirir ve workspace sınırını kontrol eder.
func (s *messageService) visibleMessage(ctx context.Context, workspaceID, messageID string) (*models.MessageRecord, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.channels.Authorize(ctx, workspaceID, message.ChannelID); err != nil {
		if errors.Is(err, pkg.ErrForbidden) {
			return nil, pkg.ErrNotFound
		}
		return nil, err
	}
	return message, nil
}

// attachReactions, items'ın Reactions alanını viewer'a göre gruplanmış setle doldurur.
func (s *messageService) attachReactions(ctx context.Context, items []models.MessageRecord, viewerID string) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	byMessage, err := s.reactionRepo.ListByMessageIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Reactions = GroupReactions(byMessage[items[i].ID], viewerID)
	}
	return nil
}

func (s *messageService) reactionsFor(ctx context.Context, messageID, viewerID string) ([]models.ReactionGroup, error) {
	byMessage, err := s.reactionRepo.ListByMessageIDs(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	return GroupReactions(byMessage[messageID], viewerID), nil
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
