package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/deskboard/deskboard/internal/domain"
	"github.com/deskboard/deskboard/internal/presence"
)

const ledgerTimeout = 5 * time.Second

// SessionLedger is the slice of the session store the lifecycle needs to
// close sessions when transports drop or terminate requests arrive.
type SessionLedger interface {
	// Close ends the session with the given ID if it is still open.
	// Returns nil with no error when nothing matched.
	Close(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error)
	// CloseOpenBySocket ends the open session whose stored socket handle
	// matches. Returns nil with no error when nothing matched.
	CloseOpenBySocket(ctx context.Context, socketID string, endedAt time.Time) (*domain.Session, error)
}

// Lifecycle drives a connection through Connected -> Identified -> Closed,
// keeping the registry, the ledger, and the broadcaster in step.
//
// Announce does not open a session: session start is an explicit REST call
// from the client, so a transport reconnect after a network blip does not
// spawn a new logical session.
type Lifecycle struct {
	registry    *presence.Registry
	ledger      SessionLedger
	broadcaster *presence.Broadcaster
	hub         *Hub
}

// NewLifecycle wires the lifecycle to its collaborators.
func NewLifecycle(registry *presence.Registry, ledger SessionLedger, broadcaster *presence.Broadcaster, hub *Hub) *Lifecycle {
	return &Lifecycle{
		registry:    registry,
		ledger:      ledger,
		broadcaster: broadcaster,
		hub:         hub,
	}
}

// HandleAnnounce moves a connection to Identified: registers the user's
// socket, joins the user and role topics, and announces the new presence
// state to everyone.
func (l *Lifecycle) HandleAnnounce(c *Client, userID, role string) {
	c.setIdentity(userID, role)
	l.registry.Register(userID, c.SocketID())

	l.hub.Join(c, domain.UserTopic(userID))
	if role != "" {
		l.hub.Join(c, domain.RoleTopic(role))
	}

	l.broadcaster.AnnounceOnline(userID)
	l.broadcaster.AnnounceOnlineCount()

	c.sendJSON(NewAnnouncedEvent(userID, role, c.SocketID()))
	slog.Info("user announced", "user_id", userID, "role", role, "socket_id", c.SocketID())
}

// HandleDisconnect runs the Closed transition. A connection that never
// announced disappears silently. For identified connections the open
// session matching this socket is closed, and only if one matched does the
// presence state unwind; an already-terminated session means another
// connection or an admin got there first and the registry reflects that.
//
// Ledger errors here are logged and swallowed. The transport is gone
// either way, and there is no caller left to report to.
func (l *Lifecycle) HandleDisconnect(ctx context.Context, c *Client) {
	userID, _, identified := c.Identity()
	if !identified {
		slog.Debug("unidentified connection closed", "socket_id", c.SocketID())
		return
	}

	now := time.Now().UTC()
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	sess, err := l.ledger.CloseOpenBySocket(cctx, c.SocketID(), now)
	if err != nil {
		slog.Error("failed to close session on disconnect", "socket_id", c.SocketID(), "error", err)
		// Best effort: the connection is gone regardless of whether the
		// ledger write landed, so still release the registry slot if this
		// socket holds it.
		if sock, ok := l.registry.Lookup(userID); ok && sock == c.SocketID() {
			l.unwindPresence(userID, now)
		}
		return
	}
	if sess == nil {
		slog.Debug("disconnect with no open session", "socket_id", c.SocketID(), "user_id", userID)
		return
	}

	l.broadcaster.AnnounceSessionEnded(sess.ID)
	l.unwindPresence(sess.UserID, now)
	slog.Info("session closed on disconnect", "session_id", sess.ID, "user_id", sess.UserID)
}

// HandleTerminate closes the named session but leaves the transport open.
// The client is expected to react to the sessionEnded event by
// disconnecting itself; until then its heartbeats are still acknowledged.
func (l *Lifecycle) HandleTerminate(ctx context.Context, c *Client, sessionID string) {
	now := time.Now().UTC()
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	sess, err := l.ledger.Close(cctx, sessionID, now)
	if err != nil {
		slog.Error("failed to terminate session", "session_id", sessionID, "error", err)
		c.sendError("LEDGER_ERROR", "failed to terminate session")
		return
	}
	if sess == nil {
		// Already closed or never existed; terminate is idempotent.
		return
	}

	l.broadcaster.AnnounceSessionEnded(sess.ID)
	if sock, ok := l.registry.Lookup(sess.UserID); ok && sock == sess.SocketID {
		l.unwindPresence(sess.UserID, now)
	}
	slog.Info("session terminated", "session_id", sess.ID, "user_id", sess.UserID)
}

// HandleHeartbeat acknowledges liveness for the sweeper. It never fails,
// even for sessions that have already been terminated.
func (l *Lifecycle) HandleHeartbeat(c *Client, sessionID string) {
	c.touchBeat()
	slog.Debug("heartbeat", "socket_id", c.SocketID(), "session_id", sessionID)
}

// HandleJoinBoard subscribes the connection to a board topic. Orthogonal
// to session and presence state.
func (l *Lifecycle) HandleJoinBoard(c *Client, boardID string) {
	if boardID == "" {
		c.sendError("INVALID_BOARD", "boardId is required")
		return
	}
	l.hub.Join(c, domain.BoardTopic(boardID))
}

// HandleLeaveBoard unsubscribes the connection from a board topic.
func (l *Lifecycle) HandleLeaveBoard(c *Client, boardID string) {
	if boardID == "" {
		c.sendError("INVALID_BOARD", "boardId is required")
		return
	}
	l.hub.Leave(c, domain.BoardTopic(boardID))
}

func (l *Lifecycle) unwindPresence(userID string, lastSeen time.Time) {
	l.registry.Unregister(userID)
	l.broadcaster.AnnounceOffline(userID, lastSeen)
	l.broadcaster.AnnounceOnlineCount()
}
