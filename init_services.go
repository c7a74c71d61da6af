// Package main: Service katmanı başlatma.
//
// initServices, service implementasyonlarını oluşturur.
// Sıralama: channelService, message ve reaction service'lerinden ÖNCE
// (ikisi de workspace sınırı kontrolü için ona bağımlı).
package main

import (
	"database/sql"
	"time"

	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/pkg/ratelimit"
	"github.com/akinalp/teamchat/services"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Token    services.TokenService
	Channel  services.ChannelService
	Message  services.MessageService
	Reaction services.ReactionService
}

// RateLimiters, rate limiter instance'larını tutan container.
type RateLimiters struct {
	Message *ratelimit.MessageRateLimiter
}

// initServices, service'leri ve rate limiter'ları oluşturur.
func initServices(db *sql.DB, repos *Repositories, cfg *config.Config) (*Services, *RateLimiters) {
	channelService := services.NewChannelService(repos.Channel)

	svcs := &Services{
		Token:    services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry),
		Channel:  channelService,
		Message:  services.NewMessageService(repos.Message, repos.Reaction, channelService),
		Reaction: services.NewReactionService(db, repos.Message, channelService),
	}

	// Kullanıcı başına 5 mesajlık burst, saniyede 1 mesaj dolum.
	limiters := &RateLimiters{
		Message: ratelimit.NewMessageRateLimiter(1, 5, 10*time.Minute),
	}

	return svcs, limiters
}
