package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Session is one connect/disconnect interval for a user. Rows are never
// deleted; ended sessions stay behind as the audit trail for the activity
// feed and reporting exports.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	SocketID  string         `json:"socketId"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Device    string         `json:"device,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Open reports whether the session has not been ended yet.
func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// Duration returns the session length in seconds, measured against now
// for sessions that are still open.
func (s *Session) Duration(now time.Time) int64 {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return int64(end.Sub(s.StartedAt) / time.Second)
}

// GenerateSocketID creates a unique socket handle with "sck_" prefix.
// Handles are issued server-side when a transport connection is accepted.
func GenerateSocketID() string {
	b := make([]byte, 12)
	rand.Read(b)
	return "sck_" + hex.EncodeToString(b)
}

// StartSessionRequest is the request body for POST /sessions.
type StartSessionRequest struct {
	SocketID string         `json:"socketId"`
	Device   string         `json:"device,omitempty"`
	IP       string         `json:"ip,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// SessionList is the paginated response for GET /sessions.
type SessionList struct {
	Sessions []SessionWithDuration `json:"sessions"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	Pages    int                   `json:"pages"`
}

// SessionWithDuration decorates a session with its computed length.
type SessionWithDuration struct {
	Session
	DurationSeconds int64 `json:"duration"`
}
