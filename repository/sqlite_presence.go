package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// sqlitePresenceStore, SessionStore'un SQLite implementasyonu.
// Kullanıcı JSON olarak user_json kolonunda tutulur; NULL = iliştirilmiş kullanıcı yok.
type sqlitePresenceStore struct {
	db  database.TxQuerier
	ttl time.Duration
	now func() time.Time
}

// NewSQLitePresenceStore, constructor. Interface döner.
func NewSQLitePresenceStore(db database.TxQuerier, ttl time.Duration) SessionStore {
	return &sqlitePresenceStore{db: db, ttl: ttl, now: time.Now}
}

func (s *sqlitePresenceStore) Put(ctx context.Context, state models.SessionState) error {
	var userJSON any
	if state.User != nil {
		raw, err := json.Marshal(state.User)
		if err != nil {
			return fmt.Errorf("failed to marshal presence user: %w", err)
		}
		userJSON = string(raw)
	}

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO presence_sessions (connection_id, room_id, user_json, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(connection_id) DO UPDATE SET
			room_id = excluded.room_id,
			user_json = excluded.user_json,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		state.ConnectionID, state.RoomID, userJSON, now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("failed to put presence session: %w", err)
	}
	return nil
}

func (s *sqlitePresenceStore) Get(ctx context.Context, connectionID string) (*models.SessionState, error) {
	var (
		state    models.SessionState
		userJSON sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT connection_id, room_id, user_json, updated_at, expires_at
		FROM presence_sessions
		WHERE connection_id = ?`, connectionID,
	).Scan(&state.ConnectionID, &state.RoomID, &userJSON, &state.UpdatedAt, &state.ExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence session: %w", err)
	}
	if !state.ExpiresAt.After(s.now()) {
		return nil, pkg.ErrNotFound
	}

	if userJSON.Valid {
		var user models.User
		if err := json.Unmarshal([]byte(userJSON.String), &user); err != nil {
			return nil, fmt.Errorf("failed to unmarshal presence user: %w", err)
		}
		state.User = &user
	}
	return &state, nil
}

func (s *sqlitePresenceStore) Delete(ctx context.Context, connectionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM presence_sessions WHERE connection_id = ?`, connectionID); err != nil {
		return fmt.Errorf("failed to delete presence session: %w", err)
	}
	return nil
}

func (s *sqlitePresenceStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM presence_sessions WHERE expires_at <= ?`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired presence sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}
