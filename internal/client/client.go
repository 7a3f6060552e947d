// Package client is a small HTTP client for the item API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"itemcrud/internal/activity"
	"itemcrud/internal/item"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ItemInput is the body sent on create and update.
type ItemInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags,omitempty"`
	Details     *item.Details  `json:"details,omitempty"`
	Comments    []item.Comment `json:"comments,omitempty"`
	Reviews     []item.Review  `json:"reviews,omitempty"`
}

// Client talks to the item API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a Bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListItems fetches every item.
func (c *Client) ListItems(ctx context.Context) ([]item.Item, error) {
	var items []item.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (*item.Item, error) {
	var it item.Item
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem creates an item.
func (c *Client) CreateItem(ctx context.Context, in ItemInput) (*item.Item, error) {
	var it item.Item
	if err := c.do(ctx, http.MethodPost, "/items", in, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// UpdateItem replaces an item's fields.
func (c *Client) UpdateItem(ctx context.Context, id string, in ItemInput) (*item.Item, error) {
	var it item.Item
	if err := c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), in, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil)
}

// AddComment appends a comment to an item.
func (c *Client) AddComment(ctx context.Context, id, user, text string) (*item.Comment, error) {
	var out item.Comment
	body := item.CommentPayload{User: user, Text: text}
	if err := c.do(ctx, http.MethodPost, "/items/"+url.PathEscape(id)+"/comments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActivity fetches the activity log, oldest first.
func (c *Client) ListActivity(ctx context.Context) ([]activity.Entry, error) {
	var entries []activity.Entry
	if err := c.do(ctx, http.MethodGet, "/activity", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
