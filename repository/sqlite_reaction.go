package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
)

// sqliteReactionRepo, ReactionRepository interface'inin SQLite implementasyonu.
type sqliteReactionRepo struct {
	db database.TxQuerier
}

// NewSQLiteReactionRepo, constructor. Interface döner.
// Toggle'ın okuma-yazma çifti atomik olsun diye servis bunu *sql.Tx ile de kurar.
func NewSQLiteReactionRepo(db database.TxQuerier) ReactionRepository {
	return &sqliteReactionRepo{db: db}
}

// Toggle: önce INSERT OR IGNORE denenir. Hiç satır eklenmediyse
// (PRIMARY KEY çakışması) reaction zaten vardır ve silinir.
func (r *sqliteReactionRepo) Toggle(ctx context.Context, messageID, userID, emoji string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reactions (message_id, user_id, emoji, created_at)
		VALUES (?, ?, ?, ?)`, messageID, userID, emoji, at)
	if err != nil {
		return false, fmt.Errorf("toggle reaction insert: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle reaction rows affected: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji); err != nil {
		return false, fmt.Errorf("toggle reaction delete: %w", err)
	}
	return false, nil
}

// ListByMessageIDs, N+1 olmaması için tüm mesajların reaction'larını tek sorguda yükler.
// Reaction'ı olmayan mesajlar map'te bulunmaz.
func (r *sqliteReactionRepo) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.Reaction, error) {
	result := make(map[string][]models.Reaction)
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(messageIDs))
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id IN (%s)
		ORDER BY rowid ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reactions by message ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rx models.Reaction
		if err := rows.Scan(&rx.MessageID, &rx.UserID, &rx.Emoji, &rx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction row: %w", err)
		}
		result[rx.MessageID] = append(result[rx.MessageID], rx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction rows: %w", err)
	}

	return result, nil
}
