package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// messageColumns, scanMessage ile aynı sırada olmalı.
const messageColumns = `
	m.id, m.channel_id, m.thread_id, m.content, m.image_url,
	m.author_id, m.author_name, m.author_email, m.author_avatar,
	m.created_at, m.updated_at,
	(SELECT COUNT(*) FROM messages r WHERE r.thread_id = m.id) AS replies_count`

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor. Interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Create(ctx context.Context, message *models.MessageRecord) error {
	query := `
		INSERT INTO messages (id, channel_id, thread_id, content, image_url,
		                      author_id, author_name, author_email, author_avatar,
		                      created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.ChannelID,
		nullableString(message.ThreadID),
		message.Content,
		nullableString(message.ImageURL),
		message.AuthorID,
		message.AuthorName,
		message.AuthorEmail,
		message.AuthorAvatar,
		message.CreatedAt,
		message.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.MessageRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}
	return msg, nil
}

// ListTopLevel, kanalın üst seviye akışından bir sayfa okur.
//
// Cursor verildiğinde (created_at, id) row-value karşılaştırması kullanılır:
// aynı ana oluşturulmuş iki mesaj id ile ayrışır, sayfa sınırında tekrar ya da kayıp olmaz.
func (r *sqliteMessageRepo) ListTopLevel(ctx context.Context, channelID, cursor string, limit int) ([]models.MessageRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if cursor == "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages m
			WHERE m.channel_id = ? AND m.thread_id IS NULL
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?`, channelID, limit)
	} else {
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM messages WHERE id = ? AND channel_id = ? AND thread_id IS NULL`,
			cursor, channelID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to resolve cursor: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("cursor %q: %w", cursor, pkg.ErrNotFound)
		}

		rows, err = r.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages m
			WHERE m.channel_id = ? AND m.thread_id IS NULL
			  AND (m.created_at, m.id) < (SELECT c.created_at, c.id FROM messages c WHERE c.id = ?)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?`, channelID, cursor, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by channel: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListThread, bir thread'in cevaplarını kronolojik (eskiden yeniye) sırayla döner.
func (r *sqliteMessageRepo) ListThread(ctx context.Context, parentID string) ([]models.MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.thread_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread replies: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *sqliteMessageRepo) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, updated_at = ? WHERE id = ?`, content, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// rowScanner, *sql.Row ve *sql.Rows'un ortak Scan metodu.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(s rowScanner) (*models.MessageRecord, error) {
	var (
		msg      models.MessageRecord
		threadID sql.NullString
		imageURL sql.NullString
	)

	if err := s.Scan(
		&msg.ID, &msg.ChannelID, &threadID, &msg.Content, &imageURL,
		&msg.AuthorID, &msg.AuthorName, &msg.AuthorEmail, &msg.AuthorAvatar,
		&msg.CreatedAt, &msg.UpdatedAt, &msg.RepliesCount,
	); err != nil {
		return nil, err
	}

	if threadID.Valid {
		msg.ThreadID = &threadID.String
	}
	if imageURL.Valid {
		msg.ImageURL = &imageURL.String
	}
	msg.Reactions = []models.ReactionGroup{}
	return &msg, nil
}

func scanMessages(rows *sql.Rows) ([]models.MessageRecord, error) {
	messages := []models.MessageRecord{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
