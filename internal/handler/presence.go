package handler

import (
	"net/http"

	"github.com/deskboard/deskboard/internal/domain"
	"github.com/deskboard/deskboard/internal/presence"
)

// PresenceHandler exposes a point-in-time snapshot of who is online.
type PresenceHandler struct {
	registry *presence.Registry
}

// NewPresenceHandler creates a PresenceHandler.
func NewPresenceHandler(registry *presence.Registry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// Snapshot returns the online count and user set.
func (h *PresenceHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.OnlineCount{
		Count:         h.registry.Count(),
		OnlineUserIDs: h.registry.OnlineUserIDs(),
	})
}
