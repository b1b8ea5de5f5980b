package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/deskboard/deskboard/internal/audit"
	"github.com/deskboard/deskboard/internal/middleware"
	"github.com/deskboard/deskboard/internal/notification"
	"github.com/deskboard/deskboard/internal/presence"
	"github.com/go-chi/chi/v5"
)

// NotificationHandler stores notifications and pushes them to connected
// clients through the broadcaster.
type NotificationHandler struct {
	store       *notification.Store
	broadcaster *presence.Broadcaster
	activity    *audit.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(store *notification.Store, broadcaster *presence.Broadcaster, activity *audit.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, broadcaster: broadcaster, activity: activity}
}

type sendNotificationRequest struct {
	UserID  string `json:"userId,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Send creates a notification and pushes it. An empty userId broadcasts
// to everyone.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "title and message are required")
		return
	}

	notif, err := h.store.Create(r.Context(), req.UserID, req.Title, req.Message)
	if err != nil {
		slog.Error("failed to create notification", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	h.broadcaster.AnnounceNotification(notif.UserID, notif)
	h.activity.Log(ident.UserID, audit.ActionSendNotification, notif.ID, map[string]any{"userId": notif.UserID})

	writeJSON(w, http.StatusCreated, notif)
}

// List returns the caller's notifications plus broadcasts.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	items, err := h.store.ListForUser(r.Context(), ident.UserID, 50)
	if err != nil {
		slog.Error("failed to list notifications", "user_id", ident.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": items, "total": len(items)})
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.store.MarkRead(r.Context(), id)
	if err != nil {
		slog.Error("failed to mark notification read", "notification_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "marked read"})
}
