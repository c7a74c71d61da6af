// Package main, teamchat sunucusunun giriş noktasıdır.
//
// Wire-up sırası:
//  1. Config'i yükle, logger'ı kur
//  2. Database'i başlat (embedded migration'lar)
//  3. Repository'leri ve presence side-table'ını oluştur
//  4. Presence Hub'ı oluştur
//  5. Service'leri, handler'ları ve route'ları bağla
//  6. CORS, HTTP server
//  7. Graceful shutdown: önce presence odaları, sonra HTTP server
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Str("module", "main").Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)
	log.Info().Str("module", "main").Int("port", cfg.Server.Port).Msg("teamchat server starting")

	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		log.Fatal().Str("module", "main").Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	a, err := newApp(cfg, db.Conn)
	if err != nil {
		log.Fatal().Str("module", "main").Err(err).Msg("failed to wire application")
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitorDone := startSessionJanitor(ctx, a.repos.Sessions, sessionPurgeInterval)

	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("module", "main").Str("addr", cfg.Server.Addr()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Str("module", "main").Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Str("module", "main").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Presence bağlantıları normal closure ile kapanır; istemciler yeniden bağlanmayı bilir.
	if err := a.hub.Shutdown(shutdownCtx); err != nil {
		log.Warn().Str("module", "main").Err(err).Msg("presence hub did not stop in time")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Str("module", "main").Err(err).Msg("forced shutdown")
	}
	<-janitorDone

	log.Info().Str("module", "main").Msg("server stopped gracefully")
}

// app, wire edilmiş uygulama: HTTP handler ve kapatılması gereken parçalar.
type app struct {
	handler  http.Handler
	hub      *ws.Hub
	repos    *Repositories
	svcs     *Services
	limiters *RateLimiters
	closer   func() error
}

// newApp, repository → service → handler → route zincirini kurar.
func newApp(cfg *config.Config, db *sql.DB) (*app, error) {
	repos, closer, err := initRepositories(db, cfg)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(repos.Sessions)
	svcs, limiters := initServices(db, repos, cfg)
	h := initHandlers(svcs, limiters, hub, cfg)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Token)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return &app{
		handler:  corsHandler.Handler(mux),
		hub:      hub,
		repos:    repos,
		svcs:     svcs,
		limiters: limiters,
		closer:   closer,
	}, nil
}

// Close, rate limiter goroutine'ini durdurur ve harici bağlantıları kapatır.
func (a *app) Close() error {
	a.limiters.Message.Stop()
	return a.closer()
}

// setupLogger, global zerolog logger'ını LOG_FORMAT ve LOG_LEVEL'e göre kurar.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
