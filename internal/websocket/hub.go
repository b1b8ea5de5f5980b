package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Hub owns all active clients and their topic memberships. It doubles as
// the broadcast router: a topic is just a named set of clients, and the
// implicit global topic is every connected client. Membership exists only
// here and only for the lifetime of a connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	slog.Debug("client registered", "socket_id", c.SocketID(), "total", total)
}

// Remove drops a client from the hub and every room it joined. Removing a
// client twice is a no-op. The send channel stays open so an in-flight
// broadcast that snapshotted the client cannot panic; the write pump exits
// when the transport closes.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for topic, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, topic)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()
	slog.Debug("client removed", "socket_id", c.SocketID(), "total", total)
}

// Join adds the client to a topic. Joining a topic twice is a no-op.
// Clients not registered with the hub cannot join.
func (h *Hub) Join(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	members, ok := h.rooms[topic]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[topic] = members
	}
	members[c] = true
}

// Leave removes the client from a topic. Leaving a topic it never joined
// is a no-op.
func (h *Hub) Leave(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[topic]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, topic)
	}
}

// Broadcast delivers payload under event to every client joined to topic.
// Best effort: clients whose send buffer is full or gone are skipped.
// An empty topic is a legal no-op.
func (h *Hub) Broadcast(topic, event string, payload any) {
	data, err := json.Marshal(&ServerEvent{Event: event, Data: payload})
	if err != nil {
		slog.Error("failed to marshal broadcast", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[topic]))
	for c := range h.rooms[topic] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// BroadcastGlobal delivers payload under event to every connected client.
func (h *Hub) BroadcastGlobal(event string, payload any) {
	data, err := json.Marshal(&ServerEvent{Event: event, Data: payload})
	if err != nil {
		slog.Error("failed to marshal broadcast", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TopicCount returns the number of clients joined to topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

// RunSweeper closes connections whose last heartbeat is older than maxAge,
// checking every interval. Expiry surfaces as a normal transport
// disconnect, so the full cleanup path runs for swept clients.
func (h *Hub) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(-maxAge)
			h.mu.RLock()
			stale := make([]*Client, 0)
			for c := range h.clients {
				if c.lastBeatTime().Before(deadline) {
					stale = append(stale, c)
				}
			}
			h.mu.RUnlock()

			for _, c := range stale {
				slog.Info("closing stale connection", "socket_id", c.SocketID(), "last_beat", c.lastBeatTime())
				c.conn.Close()
			}
		case <-ctx.Done():
			return
		}
	}
}
