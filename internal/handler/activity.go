package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/deskboard/deskboard/internal/audit"
)

// ActivityHandler serves the activity log to admins.
type ActivityHandler struct {
	activity *audit.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(activity *audit.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List returns paginated activity entries, optionally filtered by actor.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	actor := r.URL.Query().Get("actor")

	list, err := h.activity.List(r.Context(), actor, page, limit)
	if err != nil {
		slog.Error("failed to list activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}

	writeJSON(w, http.StatusOK, list)
}
