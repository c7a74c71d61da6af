package models

import "time"

// Reaction, bir kullanıcının bir mesaja verdiği tek emoji tepkisi.
// UNIQUE(message_id, user_id, emoji) sayesinde bir kullanıcı aynı emojiyi bir kez verebilir.
type Reaction struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReactionGroup, bir mesajdaki aynı emojinin toplu görünümü.
// Gruplar emojinin ilk görüldüğü sırayı korur.
type ReactionGroup struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	ReactedByMe bool   `json:"reactedByMe"`
}

// ToggleReactionRequest, reaction toggle isteği. MessageID path'ten gelir.
type ToggleReactionRequest struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// ToggleReactionResult, toggle sonrası mesajın güncel reaction seti.
type ToggleReactionResult struct {
	MessageID string          `json:"messageId"`
	Reactions []ReactionGroup `json:"reactions"`
}
