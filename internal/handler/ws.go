package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/deskboard/deskboard/internal/domain"
	"github.com/deskboard/deskboard/internal/middleware"
	"github.com/deskboard/deskboard/internal/websocket"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are handled by the CORS layer in front.
		return true
	},
}

// WSHandler accepts push connections and hands them to the lifecycle.
type WSHandler struct {
	hub       *websocket.Hub
	lifecycle *websocket.Lifecycle
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *websocket.Hub, lifecycle *websocket.Lifecycle) *WSHandler {
	return &WSHandler{hub: hub, lifecycle: lifecycle}
}

// Connect upgrades to a websocket. The connection enters the Connected
// state: accepted but anonymous until the client sends announce.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	socketID := domain.GenerateSocketID()
	client := websocket.NewClient(h.hub, h.lifecycle, conn, socketID, ident.UserID, ident.Role)
	h.hub.Register(client)

	// Pumps outlive the HTTP request context.
	go client.WritePump()
	go client.ReadPump(context.Background())
}
