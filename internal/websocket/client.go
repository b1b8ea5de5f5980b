package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one transport connection. It starts unidentified; an announce
// binds it to the authenticated user and moves it through the lifecycle.
type Client struct {
	hub       *Hub
	lifecycle *Lifecycle
	conn      *websocket.Conn
	send      chan []byte
	socketID  string

	// Validated identity from the auth collaborator, bound at upgrade time.
	authUserID string
	authRole   string

	mu         sync.RWMutex
	userID     string
	role       string
	identified bool
	lastBeat   time.Time
}

// NewClient creates a client for an accepted transport connection.
// authUserID and authRole carry the validated identity from the token the
// connection authenticated with.
func NewClient(hub *Hub, lifecycle *Lifecycle, conn *websocket.Conn, socketID, authUserID, authRole string) *Client {
	return &Client{
		hub:        hub,
		lifecycle:  lifecycle,
		conn:       conn,
		send:       make(chan []byte, 256),
		socketID:   socketID,
		authUserID: authUserID,
		authRole:   authRole,
		lastBeat:   time.Now(),
	}
}

// SocketID returns the server-issued handle for this connection.
func (c *Client) SocketID() string { return c.socketID }

// Identity returns the announced user ID and role, and whether the client
// has announced at all.
func (c *Client) Identity() (userID, role string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.role, c.identified
}

func (c *Client) setIdentity(userID, role string) {
	c.mu.Lock()
	c.userID = userID
	c.role = role
	c.identified = true
	c.mu.Unlock()
}

func (c *Client) touchBeat() {
	c.mu.Lock()
	c.lastBeat = time.Now()
	c.mu.Unlock()
}

func (c *Client) lastBeatTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastBeat
}

// ReadPump reads inbound frames until the transport drops, then unwinds
// hub membership and lifecycle state.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Remove(c)
		c.lifecycle.HandleDisconnect(ctx, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "socket_id", c.socketID, "error", err)
			}
			return
		}

		c.handleMessage(ctx, message)
	}
}

// WritePump writes queued frames and pings to the transport.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("INVALID_JSON", "invalid JSON message")
		return
	}

	switch msg.Action {
	case ActionAnnounce:
		var ann AnnounceMessage
		if err := json.Unmarshal(data, &ann); err != nil {
			c.sendError("INVALID_JSON", "invalid announce message")
			return
		}
		// The auth collaborator's identity wins over whatever the client
		// put in the frame.
		userID, role := ann.UserID, ann.Role
		if c.authUserID != "" {
			userID = c.authUserID
		}
		if c.authRole != "" {
			role = c.authRole
		}
		if userID == "" {
			c.sendError("UNIDENTIFIED", "announce requires an authenticated user")
			return
		}
		c.lifecycle.HandleAnnounce(c, userID, role)

	case ActionHeartbeat:
		var hb HeartbeatMessage
		if err := json.Unmarshal(data, &hb); err != nil {
			c.sendError("INVALID_JSON", "invalid heartbeat message")
			return
		}
		c.lifecycle.HandleHeartbeat(c, hb.SessionID)

	case ActionTerminate:
		var term TerminateMessage
		if err := json.Unmarshal(data, &term); err != nil {
			c.sendError("INVALID_JSON", "invalid terminate message")
			return
		}
		c.lifecycle.HandleTerminate(ctx, c, term.SessionID)

	case ActionJoinBoardRoom:
		var br BoardRoomMessage
		if err := json.Unmarshal(data, &br); err != nil {
			c.sendError("INVALID_JSON", "invalid board room message")
			return
		}
		c.lifecycle.HandleJoinBoard(c, br.BoardID)

	case ActionLeaveBoardRoom:
		var br BoardRoomMessage
		if err := json.Unmarshal(data, &br); err != nil {
			c.sendError("INVALID_JSON", "invalid board room message")
			return
		}
		c.lifecycle.HandleLeaveBoard(c, br.BoardID)

	case ActionPing:
		c.sendJSON(NewPongEvent())

	default:
		c.sendError("UNKNOWN_ACTION", "unknown action: "+msg.Action)
	}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "socket_id", c.socketID)
	}
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal message", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) sendError(code, message string) {
	c.sendJSON(NewErrorEvent(code, message))
}
