package client

import "net/http"

// PresenceResponse is the response to GET /presence.
type PresenceResponse struct {
	Count         int      `json:"count"`
	OnlineUserIDs []string `json:"onlineUserIds"`
}

// Presence returns a snapshot of currently online users.
func (c *Client) Presence() (*PresenceResponse, error) {
	var out PresenceResponse
	if err := c.do(http.MethodGet, "/api/v1/presence", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
