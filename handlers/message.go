package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/pkg/ratelimit"
	"github.com/akinalp/teamchat/services"
)

// MessageHandler, mesaj akışı endpoint'lerini yöneten struct.
// Tüm route'lar /api/workspaces/{workspaceId} altındadır.
type MessageHandler struct {
	messageService services.MessageService
	limiter        *ratelimit.MessageRateLimiter
}

// NewMessageHandler, constructor.
// limiter nil ise mesaj oluşturma sınırsızdır.
func NewMessageHandler(messageService services.MessageService, limiter *ratelimit.MessageRateLimiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		limiter:        limiter,
	}
}

// List godoc
// GET /api/workspaces/{workspaceId}/channels/{channelId}/messages?cursor=ID&limit=30
//
// En yeniden eskiye bir sayfa döner. cursor, istemcinin bildiği en eski mesajın ID'si.
// limit verilmezse 30; 1..100 dışı 400.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	q := models.ListMessagesQuery{
		ChannelID: r.PathValue("channelId"),
		Cursor:    r.URL.Query().Get("cursor"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		q.Limit = parsed
	}

	page, err := h.messageService.List(r.Context(), r.PathValue("workspaceId"), user, q)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Create godoc
// POST /api/workspaces/{workspaceId}/messages
//
// Body: { "channelId": "...", "content": "...", "imageUrl": null, "threadId": null }
// threadId verilirse mesaj o thread'e cevap olarak eklenir.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(user.ID) {
		pkg.TooManyRequests(w, h.limiter.RetryAfterSeconds(user.ID), "too many messages, slow down")
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Create(r.Context(), r.PathValue("workspaceId"), user, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, message)
}

// Update godoc
// PUT /api/workspaces/{workspaceId}/messages/{messageId}
// Sadece mesajın yazarı düzenleyebilir. Response: { "message": {...}, "canEdit": true }
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.MessageID = r.PathValue("messageId")

	result, err := h.messageService.Update(r.Context(), r.PathValue("workspaceId"), user, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Thread godoc
// GET /api/workspaces/{workspaceId}/messages/{messageId}/thread
// Parent mesaj + cevaplar (eskiden yeniye).
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	listing, err := h.messageService.ListThread(r.Context(), r.PathValue("workspaceId"), user, r.PathValue("messageId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, listing)
}
