// Package main: Handler katmanı başlatma.
//
// initHandlers, HTTP handler'larını ve presence upgrade handler'ını oluşturur.
package main

import (
	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/handlers"
	"github.com/akinalp/teamchat/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Channel  *handlers.ChannelHandler
	Message  *handlers.MessageHandler
	Reaction *handlers.ReactionHandler
	WS       *ws.Handler
}

func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:     handlers.NewAuthHandler(svcs.Token),
		Channel:  handlers.NewChannelHandler(svcs.Channel),
		Message:  handlers.NewMessageHandler(svcs.Message, limiters.Message),
		Reaction: handlers.NewReactionHandler(svcs.Reaction),
		WS:       ws.NewHandler(hub, svcs.Token, cfg.Presence.RequireToken),
	}
}
