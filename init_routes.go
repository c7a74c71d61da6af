// Package main: HTTP route registration.
//
// initRoutes, tüm endpoint'leri mux'a bağlar. Mesaj akışı route'ları
// /api/workspaces/{workspaceId} altındadır ve hepsi bearer token ister.
// Presence WebSocket route'ları kendi token kontrolünü yapar (tarayıcılar
// upgrade isteğinde header gönderemez; token query parametresindedir).
package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akinalp/teamchat/middleware"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/services"
)

// initRoutes, middleware chain'i kurar ve endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: literal path'ler parametrik path'lerden önce.
func initRoutes(mux *http.ServeMux, h *Handlers, tokenService services.TokenService) {
	authMw := middleware.NewAuthMiddleware(tokenService)
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}

	// ─── Ops ───
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		pkg.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "teamchat"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// ─── Identity ───
	mux.Handle("GET /api/me", auth(h.Auth.Me))
	mux.Handle("POST /api/auth/refresh", auth(h.Auth.Refresh))

	// ─── Workspaces / Channels ───
	mux.Handle("POST /api/workspaces", auth(h.Channel.CreateWorkspace))
	mux.Handle("GET /api/workspaces/{workspaceId}/channels", auth(h.Channel.List))
	mux.Handle("POST /api/workspaces/{workspaceId}/channels", auth(h.Channel.Create))

	// ─── Messages ───
	mux.Handle("GET /api/workspaces/{workspaceId}/channels/{channelId}/messages", auth(h.Message.List))
	mux.Handle("POST /api/workspaces/{workspaceId}/messages", auth(h.Message.Create))
	mux.Handle("PUT /api/workspaces/{workspaceId}/messages/{messageId}", auth(h.Message.Update))
	mux.Handle("GET /api/workspaces/{workspaceId}/messages/{messageId}/thread", auth(h.Message.Thread))
	mux.Handle("POST /api/workspaces/{workspaceId}/messages/{messageId}/reactions", auth(h.Reaction.Toggle))

	// ─── Presence ───
	mux.HandleFunc("GET /parties/chat/{room}", h.WS.HandleConnection)
	mux.HandleFunc("GET /ws/presence/{room}", h.WS.HandleConnection)
}
