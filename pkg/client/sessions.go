package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Session mirrors the server's session record.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	SocketID  string         `json:"socketId"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Device    string         `json:"device,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	Duration  int64          `json:"duration,omitempty"`
}

// ActiveSessionsResponse is the response to GET /sessions/active.
type ActiveSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
}

// SessionListResponse is the paginated response to GET /sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}

// ActiveSessions lists open sessions, optionally filtered by user.
func (c *Client) ActiveSessions(userID string) (*ActiveSessionsResponse, error) {
	path := "/api/v1/sessions/active"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var out ActiveSessionsResponse
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists session history.
func (c *Client) Sessions(userID string, page, limit int) (*SessionListResponse, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/v1/sessions/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out SessionListResponse
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TerminateSession force-closes a session (admin token required).
func (c *Client) TerminateSession(sessionID string) error {
	return c.do(http.MethodPost, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/terminate", nil, nil)
}

// EndSession closes one of the caller's own sessions.
func (c *Client) EndSession(sessionID string) error {
	return c.do(http.MethodPost, "/api/v1/sessions/"+url.PathEscape(sessionID)+"/end", nil, nil)
}
