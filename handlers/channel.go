package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/services"
)

// ChannelHandler, workspace ve kanal endpoint'lerini yöneten struct.
type ChannelHandler struct {
	channelService services.ChannelService
}

// NewChannelHandler, constructor.
func NewChannelHandler(channelService services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

type nameRequest struct {
	Name string `json:"name"`
}

// CreateWorkspace godoc
// POST /api/workspaces
// Yeni workspace oluşturur. Response: { "id": "...", "room": "workspace-<id>" }
func (h *ChannelHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.channelService.CreateWorkspace(r.Context(), req.Name)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, map[string]string{"id": id, "room": models.WorkspaceRoom(id)})
}

// List godoc
// GET /api/workspaces/{workspaceId}/channels
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channelService.List(r.Context(), r.PathValue("workspaceId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channels)
}

// Create godoc
// POST /api/workspaces/{workspaceId}/channels
// Body: { "name": "general" }
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel, err := h.channelService.Create(r.Context(), r.PathValue("workspaceId"), req.Name)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, channel)
}
