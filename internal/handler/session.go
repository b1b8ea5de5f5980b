package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/deskboard/deskboard/internal/audit"
	"github.com/deskboard/deskboard/internal/domain"
	"github.com/deskboard/deskboard/internal/middleware"
	"github.com/deskboard/deskboard/internal/notification"
	"github.com/deskboard/deskboard/internal/presence"
	"github.com/deskboard/deskboard/internal/session"
	"github.com/go-chi/chi/v5"
)

// SessionHandler exposes the session ledger over REST. Session start and
// explicit termination come through here, not the socket layer: a client
// can reconnect its transport without starting a new logical session.
type SessionHandler struct {
	store         *session.Store
	registry      *presence.Registry
	broadcaster   *presence.Broadcaster
	activity      *audit.Logger
	notifications *notification.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(store *session.Store, registry *presence.Registry, broadcaster *presence.Broadcaster, activity *audit.Logger, notifications *notification.Store) *SessionHandler {
	return &SessionHandler{
		store:         store,
		registry:      registry,
		broadcaster:   broadcaster,
		activity:      activity,
		notifications: notifications,
	}
}

// Start opens a session for the authenticated user and registers the
// announced socket as their live connection.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var req domain.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SocketID == "" {
		writeError(w, http.StatusBadRequest, "socketId is required")
		return
	}

	ip := req.IP
	if ip == "" {
		ip = r.RemoteAddr
	}

	sess, err := h.store.Open(r.Context(), ident.UserID, req.SocketID, ip, req.Device, req.Meta)
	if err != nil {
		slog.Error("failed to open session", "user_id", ident.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	h.registry.Register(ident.UserID, req.SocketID)
	h.broadcaster.AnnounceSessionStarted(sess)
	h.broadcaster.AnnounceOnline(ident.UserID)
	h.broadcaster.AnnounceOnlineCount()
	h.activity.Log(ident.UserID, audit.ActionStartSession, sess.ID, nil)

	writeJSON(w, http.StatusCreated, sess)
}

// End closes one of the caller's own sessions.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	id := chi.URLParam(r, "id")

	existing, err := h.store.Get(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if existing.UserID != ident.UserID && ident.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your session")
		return
	}

	sess, err := h.store.Close(r.Context(), id, time.Now().UTC())
	if err != nil {
		slog.Error("failed to close session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	if sess != nil {
		h.announceClosed(sess)
	}
	h.activity.Log(ident.UserID, audit.ActionEndSession, id, nil)

	writeJSON(w, http.StatusOK, map[string]any{"message": "session ended", "session": existing})
}

// Terminate is the admin path: it revokes the logical session without
// severing the live socket. The owner gets a notification and is expected
// to disconnect on the sessionEnded event.
func (h *SessionHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	id := chi.URLParam(r, "id")

	sess, err := h.store.Close(r.Context(), id, time.Now().UTC())
	if err != nil {
		slog.Error("failed to terminate session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to terminate session")
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "no open session found")
		return
	}

	h.announceClosed(sess)
	h.activity.Log(ident.UserID, audit.ActionTerminateSession, id, map[string]any{"userId": sess.UserID})

	notif, err := h.notifications.Create(r.Context(), sess.UserID,
		"Session Terminated",
		"One of your sessions has been terminated by an administrator")
	if err != nil {
		slog.Error("failed to create termination notification", "user_id", sess.UserID, "error", err)
	} else {
		h.broadcaster.AnnounceNotification(sess.UserID, notif)
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "session terminated", "session": sess})
}

// Logout closes every open session the caller has, across all devices.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	closed, err := h.store.CloseAllOpenForUser(r.Context(), ident.UserID, time.Now().UTC())
	if err != nil {
		slog.Error("failed to close sessions on logout", "user_id", ident.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	for i := range closed {
		h.broadcaster.AnnounceSessionEnded(closed[i].ID)
	}
	if len(closed) > 0 {
		h.registry.Unregister(ident.UserID)
		h.broadcaster.AnnounceOffline(ident.UserID, time.Now().UTC())
		h.broadcaster.AnnounceOnlineCount()
	}
	h.activity.Log(ident.UserID, audit.ActionLogout, "", map[string]any{"closed": len(closed)})

	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out", "closed": len(closed)})
}

// Active lists open sessions with their running duration.
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.FindOpen(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		slog.Error("failed to list open sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	now := time.Now().UTC()
	out := make([]domain.SessionWithDuration, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, domain.SessionWithDuration{Session: sess, DurationSeconds: sess.Duration(now)})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": out, "total": len(out)})
}

// List returns paginated session history. Non-admins only see their own.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	userID := r.URL.Query().Get("userId")
	if ident.Role != domain.RoleAdmin {
		userID = ident.UserID
	}

	list, err := h.store.List(r.Context(), userID, page, limit)
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// announceClosed mirrors the socket disconnect unwind for sessions closed
// over REST: emit sessionEnded, and release the presence slot only when
// the closed session's socket is the one the registry tracks.
func (h *SessionHandler) announceClosed(sess *domain.Session) {
	h.broadcaster.AnnounceSessionEnded(sess.ID)
	if sock, ok := h.registry.Lookup(sess.UserID); ok && sock == sess.SocketID {
		h.registry.Unregister(sess.UserID)
		h.broadcaster.AnnounceOffline(sess.UserID, time.Now().UTC())
		h.broadcaster.AnnounceOnlineCount()
	}
}
