package domain

import "time"

// Outbound push event names. The set is closed: every payload the server
// pushes over the socket is one of these, with a fixed shape.
const (
	EventOnlineCountUpdate = "onlineCountUpdate"
	EventPresenceUpdate    = "presenceUpdate"
	EventSessionStarted    = "sessionStarted"
	EventSessionEnded      = "sessionEnded"
	EventUserUpdated       = "userUpdated"
	EventRoleChanged       = "roleChanged"
	EventNewNotification   = "newNotification"
	EventKanbanUpdate      = "kanbanUpdate"
)

// Roles understood by the topic router.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// PresenceDelta is the payload of a presenceUpdate event. It is never
// stored; it exists only on the wire.
type PresenceDelta struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// OnlineCount is the payload of an onlineCountUpdate event.
type OnlineCount struct {
	Count         int      `json:"count"`
	OnlineUserIDs []string `json:"onlineUserIds"`
}

// SessionEnded is the payload of a sessionEnded event.
type SessionEnded struct {
	SessionID string `json:"sessionId"`
}

// RoleChange is the payload of a roleChanged event.
type RoleChange struct {
	UserID  string `json:"userId"`
	NewRole string `json:"newRole"`
}

// Topic names scope a broadcast to one user, one role, or one board.
// Membership lives only in the hub for the lifetime of a connection.

func UserTopic(userID string) string { return "user:" + userID }

func RoleTopic(role string) string { return "role:" + role }

func BoardTopic(boardID string) string { return "board:" + boardID }
