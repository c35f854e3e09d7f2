// Package client is a minimal HTTP client for the hiveminddb memory API,
// used by the MCP tool handlers. It intentionally does not import
// hiveminddb's internal packages (see mcp/go.mod) — it only needs to
// speak the wire format documented by internal/plugin/route/*.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running hiveminddb server's /api/v1 surface.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New returns a Client with a sane default timeout, mirroring the teacher's
// embedding-provider HTTP clients.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is returned for any non-2xx response, carrying the status code
// so tool handlers can surface it without re-parsing the body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hiveminddb returned %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// AddMemoryRequest mirrors internal/plugin/route/memories.addMemoryRequest.
type AddMemoryRequest struct {
	Content    string   `json:"content"`
	Kind       string   `json:"kind,omitempty"`
	AgentID    *string  `json:"agentId,omitempty"`
	UserID     *string  `json:"userId,omitempty"`
	SessionID  *string  `json:"sessionId,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Source     string   `json:"source,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Metadata   string   `json:"metadata,omitempty"`
}

// Memory mirrors internal/model.Memory's JSON shape. Kept as raw fields
// rather than imported so this module stays independent of the main one.
type Memory struct {
	ID         uint64    `json:"id"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	AgentID    *string   `json:"agentId,omitempty"`
	UserID     *string   `json:"userId,omitempty"`
	SessionID  *string   `json:"sessionId,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	ValidFrom  time.Time `json:"validFrom"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	Source     string    `json:"source,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
}

func (c *Client) AddMemory(ctx context.Context, req AddMemoryRequest) (*Memory, error) {
	var m Memory
	if err := c.do(ctx, http.MethodPost, "/api/v1/memories", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) GetMemory(ctx context.Context, id string) (*Memory, error) {
	var m Memory
	if err := c.do(ctx, http.MethodGet, "/api/v1/memories/"+id, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) InvalidateMemory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/memories/"+id, nil, nil)
}

// SearchRequest mirrors internal/plugin/route/search.searchRequest.
type SearchRequest struct {
	Query              string   `json:"query"`
	AgentID            *string  `json:"agentId,omitempty"`
	UserID             *string  `json:"userId,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Limit              int      `json:"limit,omitempty"`
	IncludeInvalidated bool     `json:"includeInvalidated,omitempty"`
}

// SearchResult mirrors internal/plugin/route/search.searchResult, with
// Memory decoded to the concrete shape instead of interface{}.
type SearchResult struct {
	Memory Memory  `json:"memory"`
	Score  float64 `json:"score"`
}

func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
