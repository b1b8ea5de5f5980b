package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ActivityEntry mirrors one activity log row.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Target    string         `json:"target,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ActivityResponse is the paginated response to GET /activity.
type ActivityResponse struct {
	Entries []ActivityEntry `json:"entries"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
}

// Activity lists activity log entries (admin token required).
func (c *Client) Activity(actor string, page, limit int) (*ActivityResponse, error) {
	q := url.Values{}
	if actor != "" {
		q.Set("actor", actor)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/v1/activity"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ActivityResponse
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
