// Package main: Repository katmanı başlatma.
//
// initRepositories, SQLite repository'lerini ve presence side-table'ını oluşturur.
// Side-table backend'i PRESENCE_STORE ile seçilir: sqlite (varsayılan) veya redis.
package main

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	Channel  repository.ChannelRepository
	Message  repository.MessageRepository
	Reaction repository.ReactionRepository
	Sessions repository.SessionStore
}

// initRepositories, repository'leri oluşturur. Dönen closer, Redis kullanılıyorsa
// client'ı kapatır; SQLite'ta no-op'tur.
func initRepositories(db *sql.DB, cfg *config.Config) (*Repositories, func() error, error) {
	repos := &Repositories{
		Channel:  repository.NewSQLiteChannelRepo(db),
		Message:  repository.NewSQLiteMessageRepo(db),
		Reaction: repository.NewSQLiteReactionRepo(db),
	}
	closer := func() error { return nil }

	switch cfg.Presence.Store {
	case config.PresenceStoreRedis:
		store, err := repository.NewRedisPresenceStore(cfg.Redis.URL, cfg.Presence.SessionTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis presence store: %w", err)
		}
		repos.Sessions = store
		closer = store.Close
	default:
		repos.Sessions = repository.NewSQLitePresenceStore(db, cfg.Presence.SessionTTL)
	}

	log.Info().Str("module", "main").Str("store", cfg.Presence.Store).Msg("presence session store ready")
	return repos, closer, nil
}
