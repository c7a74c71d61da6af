package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/services"
)

// ReactionHandler, emoji reaction endpoint'i.
type ReactionHandler struct {
	reactionService services.ReactionService
}

// NewReactionHandler, constructor.
func NewReactionHandler(reactionService services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

// Toggle godoc
// POST /api/workspaces/{workspaceId}/messages/{messageId}/reactions
//
// Body: { "emoji": "👍" }
// Aynı emoji ile ikinci istek reaction'ı kaldırır. Emoji body'de gelir,
// URL path'te encoding sorunu çıkarır.
//
// Response: { "messageId": "...", "reactions": [{ "emoji", "count", "reactedByMe" }] }
func (h *ReactionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.ToggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.MessageID = r.PathValue("messageId")

	result, err := h.reactionService.Toggle(r.Context(), r.PathValue("workspaceId"), user, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
