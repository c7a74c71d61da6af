package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Sayfalama sınırları. Limit verilmezse DefaultPageLimit kullanılır.
const (
	DefaultPageLimit = 30
	MaxPageLimit     = 100

	// MaxContentLength, serialize edilmiş editör dokümanının rune cinsinden üst sınırı.
	MaxContentLength = 20000
)

// MessageRecord, bir kanal veya thread akışındaki tek mesaj.
//
// Content opaktır: zengin metin editörünün JSON dokümanı olduğu gibi saklanır.
// ThreadID nil ise mesaj kanalın üst seviye akışındadır; doluysa bir thread
// cevabıdır ve ebeveyni her zaman üst seviye bir mesajdır (thread derinliği = 1).
type MessageRecord struct {
	ID           string          `json:"id"`
	Content      string          `json:"content"`
	ImageURL     *string         `json:"imageUrl"`
	AuthorID     string          `json:"authorId"`
	AuthorName   string          `json:"authorName"`
	AuthorEmail  string          `json:"authorEmail"`
	AuthorAvatar string          `json:"authorAvatar"`
	ChannelID    string          `json:"channelId"`
	ThreadID     *string         `json:"threadId"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	RepliesCount int             `json:"repliesCount"`
	Reactions    []ReactionGroup `json:"reactions"`
}

// IsReply, mesajın bir thread cevabı olup olmadığını döner.
func (m *MessageRecord) IsReply() bool {
	return m.ThreadID != nil && *m.ThreadID != ""
}

// Clone, pointer alanlar ve reaction dilimi dahil derin kopya döner.
// Önbellek snapshot'ları bu kopyalara dayanır; aynı dilimi paylaşan iki
// snapshot birbirini bozar.
func (m MessageRecord) Clone() MessageRecord {
	c := m
	if m.ImageURL != nil {
		v := *m.ImageURL
		c.ImageURL = &v
	}
	if m.ThreadID != nil {
		v := *m.ThreadID
		c.ThreadID = &v
	}
	if m.Reactions != nil {
		c.Reactions = make([]ReactionGroup, len(m.Reactions))
		copy(c.Reactions, m.Reactions)
	}
	return c
}

// MessagePage, cursor-based sayfalama sonucu.
//
// Items sunucu sırasıdır: en yeniden eskiye.
// NextCursor, sayfadaki en eski mesajın ID'sidir; daha eski mesaj kalmadıysa boştur.
type MessagePage struct {
	Items      []MessageRecord `json:"items"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// ListMessagesQuery, kanal akışı okuma isteği.
type ListMessagesQuery struct {
	ChannelID string
	Cursor    string
	Limit     int
}

// Normalize, limit'i varsayılana çeker ve aralık dışı değerleri reddeder.
func (q *ListMessagesQuery) Normalize() error {
	if q.Limit == 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		return fmt.Errorf("limit must be between 1 and %d", MaxPageLimit)
	}
	if strings.TrimSpace(q.ChannelID) == "" {
		return fmt.Errorf("channelId is required")
	}
	return nil
}

// CreateMessageRequest, yeni mesaj veya thread cevabı isteği.
type CreateMessageRequest struct {
	ChannelID string  `json:"channelId"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"imageUrl,omitempty"`
	ThreadID  *string `json:"threadId,omitempty"`
}

// Validate, CreateMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *CreateMessageRequest) Validate() error {
	if strings.TrimSpace(r.ChannelID) == "" {
		return fmt.Errorf("channelId is required")
	}
	if err := validateContent(r.Content); err != nil {
		return err
	}
	if r.ImageURL != nil && !strings.HasPrefix(*r.ImageURL, "http://") && !strings.HasPrefix(*r.ImageURL, "https://") {
		return fmt.Errorf("imageUrl must be an absolute http(s) url")
	}
	if r.ThreadID != nil && strings.TrimSpace(*r.ThreadID) == "" {
		r.ThreadID = nil
	}
	return nil
}

// UpdateMessageRequest, mesaj düzenleme isteği. MessageID path'ten gelir.
type UpdateMessageRequest struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// Validate, UpdateMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *UpdateMessageRequest) Validate() error {
	if strings.TrimSpace(r.MessageID) == "" {
		return fmt.Errorf("messageId is required")
	}
	return validateContent(r.Content)
}

// UpdateMessageResult, düzenleme cevabı.
type UpdateMessageResult struct {
	Message MessageRecord `json:"message"`
	CanEdit bool          `json:"canEdit"`
}

// ThreadListing, bir thread'in ebeveyni ve kronolojik sıralı cevapları.
type ThreadListing struct {
	Parent   MessageRecord   `json:"parent"`
	Messages []MessageRecord `json:"messages"`
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < 1 {
		return fmt.Errorf("message content is required")
	}
	if n > MaxContentLength {
		return fmt.Errorf("message content must be at most %d characters", MaxContentLength)
	}
	return nil
}
