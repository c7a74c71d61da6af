// Package main: arka plan işleri.
//
// startSessionJanitor, presence side-table'ında süresi dolan kayıtları periyodik
// olarak siler. Redis backend'inde süre dolumu key TTL'iyle olur; DeleteExpired no-op'tur.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/repository"
)

// sessionPurgeInterval, side-table temizliği arası süre.
const sessionPurgeInterval = 10 * time.Minute

// startSessionJanitor, ctx iptal edilene kadar çalışan temizlik goroutine'ini başlatır.
// Dönen kanal goroutine bitince kapanır.
func startSessionJanitor(ctx context.Context, store repository.SessionStore, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purgeSessions(ctx, store)
			}
		}
	}()
	return done
}

func purgeSessions(ctx context.Context, store repository.SessionStore) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		log.Warn().Str("module", "main").Err(err).Msg("failed to purge expired presence sessions")
		return
	}
	if n > 0 {
		log.Info().Str("module", "main").Int64("removed", n).Msg("expired presence sessions purged")
	}
}
