// Package pathstore is a client for the pathstore key/value service.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client communicates with the pathstore HTTP API, a remote key/value
// service used here to keep chapter summaries across restarts.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value      any     `json:"value"`
	MergeMode  string  `json:"merge_mode,omitempty"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
	Source     string  `json:"source,omitempty"`
	ExpiresAt  string  `json:"expires_at,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key        string  `json:"key_path"`
	Value      any     `json:"value"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
}

// ListChildrenResponse is a single node from a prefix scan.
type ListChildrenResponse struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

// StatusError is an unexpected HTTP status from the service.
type StatusError struct {
	Op         string
	Key        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Key, e.StatusCode, e.Body)
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	_, err = c.do(ctx, "put node", key, http.MethodPut, "/kv/"+key, body, nil, http.StatusOK, http.StatusCreated)
	return err
}

// GetNode retrieves a node by key. A missing key yields (nil, nil).
func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	var node NodeResponse
	status, err := c.do(ctx, "get node", key, http.MethodGet, "/kv/"+key, nil, &node, http.StatusOK, http.StatusNotFound)
	if err != nil || status == http.StatusNotFound {
		return nil, err
	}
	return &node, nil
}

// DeleteNode deletes a node and optionally its children.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	path := "/kv/" + key
	if recursive {
		path += "?children=true"
	}
	_, err := c.do(ctx, "delete node", key, http.MethodDelete, path, nil, nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	return err
}

// ListChildren does a prefix scan under the given key. An unknown prefix
// yields no nodes.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]ListChildrenResponse, error) {
	path := "/kv/" + key + "/*"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result struct {
		Nodes []ListChildrenResponse `json:"nodes"`
	}
	status, err := c.do(ctx, "list children", key, http.MethodGet, path, nil, &result, http.StatusOK, http.StatusNotFound)
	if err != nil || status == http.StatusNotFound {
		return nil, err
	}
	return result.Nodes, nil
}

// do sends one request and decodes a 200 response into out when out is
// non-nil. Any status outside ok is a *StatusError.
func (c *Client) do(ctx context.Context, op, key, method, path string, body []byte, out any, ok ...int) (int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	accepted := false
	for _, code := range ok {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, &StatusError{Op: op, Key: key, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s: decode: %w", op, err)
		}
	}
	return resp.StatusCode, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
