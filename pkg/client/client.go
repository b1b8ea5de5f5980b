// Package client is the Go client for the deskboard API, used by the CLI
// and by other services that need presence or session data.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultServer  = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second
)

// Client is the deskboard API client.
type Client struct {
	token      string
	server     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// New creates a new deskboard client authenticating with the given JWT.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:  token,
		server: DefaultServer,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithServer sets a custom server URL.
func WithServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.server = server
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.server
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.server+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
