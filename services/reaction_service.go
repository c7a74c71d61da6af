package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/repository"
)

// MaxEmojiLength, bir emoji string'inin maksimum rune uzunluğu.
// Bileşik emojiler (aile, bayrak) 10+ codepoint olabilir.
const MaxEmojiLength = 32

// ReactionService, emoji reaction toggle iş mantığı.
type ReactionService interface {
	Toggle(ctx context.Context, workspaceID string, actor *models.User, req *models.ToggleReactionRequest) (*models.ToggleReactionResult, error)
}

type reactionService struct {
	db          *sql.DB
	messageRepo repository.MessageRepository
	channels    ChannelService
	now         func() time.Time
}

// NewReactionService, constructor.
// db: toggle ve ardından okunan güncel set aynı transaction'dadır.
func NewReactionService(db *sql.DB, messageRepo repository.MessageRepository, channels ChannelService) ReactionService {
	return &reactionService{
		db:          db,
		messageRepo: messageRepo,
		channels:    channels,
		now:         time.Now,
	}
}

// Toggle, actor'ün emoji tepkisini ekler ya da kaldırır ve mesajın güncel
// gruplanmış reaction setini döner. Aynı emojiyle iki toggle seti eski haline getirir.
func (s *reactionService) Toggle(ctx context.Context, workspaceID string, actor *models.User, req *models.ToggleReactionRequest) (*models.ToggleReactionResult, error) {
	emoji := strings.TrimSpace(req.Emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", pkg.ErrBadRequest)
	}
	if utf8.RuneCountInString(emoji) > MaxEmojiLength {
		return nil, fmt.Errorf("%w: emoji too long", pkg.ErrBadRequest)
	}

	message, err := s.messageRepo.GetByID(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if err := s.channels.Authorize(ctx, workspaceID, message.ChannelID); err != nil {
		if errors.Is(err, pkg.ErrForbidden) {
			return nil, pkg.ErrNotFound
		}
		return nil, err
	}

	var rows []models.Reaction
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteReactionRepo(tx)
		if _, err := repo.Toggle(ctx, message.ID, actor.ID, emoji, s.now().UTC()); err != nil {
			return err
		}
		byMessage, err := repo.ListByMessageIDs(ctx, []string{message.ID})
		if err != nil {
			return err
		}
		rows = byMessage[message.ID]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	return &models.ToggleReactionResult{
		MessageID: message.ID,
		Reactions: GroupReactions(rows, actor.ID),
	}, nil
}

// GroupReactions, reaction satırlarını emoji başına toplar.
// Grupların sırası emojinin ilk görüldüğü sıradır; reactedByMe viewerID'ye göredir.
// Boş girdi için boş (nil olmayan) dilim döner.
func GroupReactions(rows []models.Reaction, viewerID string) []models.ReactionGroup {
	groups := make([]models.ReactionGroup, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, r := range rows {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, models.ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Count++
		if r.UserID == viewerID {
			groups[i].ReactedByMe = true
		}
	}
	return groups
}
