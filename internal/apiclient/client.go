// Package apiclient talks to the external task API that owns all persistence
// and authentication.
package apiclient

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
	"sync"
	"time"

	"github.com/google/uuid"

	"task-dashboard/internal/logger"
	"task-dashboard/internal/model"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrUnsuccessfulReply = errors.New("api reported failure")
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TaskListParams mirrors the server-side filters the API understands. The
// server result is re-filtered locally regardless.
type TaskListParams struct {
	SubCategoryID model.ID
	CategoryID    model.ID
}

type envelope struct {
	Success       *bool               `json:"success"`
	Message       string              `json:"message"`
	Categories    []model.Category    `json:"categories"`
	SubCategories []model.SubCategory `json:"subcategories"`
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string, admin bool) (string, error) {
	path := "/user/login"
	if admin {
		path = "/user/adminlogin"
	}
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login: %w: no token in response", ErrUnauthorized)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return resp.Token, nil
}

// ListTasks fetches the task collection. A body that is not a JSON array is
// treated as an empty collection.
func (c *Client) ListTasks(ctx context.Context, params TaskListParams) ([]model.Task, error) {
	path := "/task"
	if params.SubCategoryID != "" {
		path += "/" + url.PathEscape(params.SubCategoryID.String())
	}
	if params.CategoryID != "" {
		path += "?category_id=" + url.QueryEscape(params.CategoryID.String())
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return decodeTasks(ctx, raw), nil
}

// UserTasks fetches the tasks assigned to one user. The server wraps them as
// {"task": [...]}.
func (c *Client) UserTasks(ctx context.Context, userID model.ID) ([]model.Task, error) {
	if userID == "" {
		return nil, errors.New("user tasks: empty user id")
	}
	var resp struct {
		Task json.RawMessage `json:"task"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/task/"+url.PathEscape(userID.String()), nil, &resp); err != nil {
		return nil, fmt.Errorf("user tasks: %w", err)
	}
	return decodeTasks(ctx, resp.Task), nil
}

// TaskAnalytics returns the server-side task aggregation as-is.
func (c *Client) TaskAnalytics(ctx context.Context) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := c.do(ctx, http.MethodGet, "/task/alltask/analytics", nil, &out); err != nil {
		return nil, fmt.Errorf("task analytics: %w", err)
	}
	return out, nil
}

// UserAnalytics returns the server's user listing as-is; its shape is not
// fixed by the API.
func (c *Client) UserAnalytics(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/user/alluser", nil, &out); err != nil {
		return nil, fmt.Errorf("user analytics: %w", err)
	}
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	return out, nil
}

// decodeTasks reads a JSON array of tasks one record at a time. Anything that
// is not an array is an empty collection, and records that fail to decode are
// logged and skipped.
func decodeTasks(ctx context.Context, raw json.RawMessage) []model.Task {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []model.Task{}
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		logger.WarnLog(ctx, "task list is not a valid array: %v", err)
		return []model.Task{}
	}

	tasks := make([]model.Task, 0, len(records))
	for i, record := range records {
		var task model.Task
		if err := json.Unmarshal(record, &task); err != nil {
			logger.WarnLog(ctx, "skip task record %d: %v", i, err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp envelope
	if err := c.do(ctx, http.MethodGet, "/category", nil, &resp); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if err := resp.check(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return resp.Categories, nil
}

// ListSubCategories returns every subcategory, or those of one category when
// categoryID is set.
func (c *Client) ListSubCategories(ctx context.Context, categoryID model.ID) ([]model.SubCategory, error) {
	path := "/subcategory"
	if categoryID != "" {
		path += "/" + url.PathEscape(categoryID.String())
	}
	var resp envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	if err := resp.check(); err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return resp.SubCategories, nil
}

func (e envelope) check() error {
	if e.Success != nil && !*e.Success {
		msg := e.Message
		if msg == "" {
			msg = "no message"
		}
		return fmt.Errorf("%w: %s", ErrUnsuccessfulReply, msg)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	logger.DebugLog(ctx, "api %s %s -> %d in %s (request %s)", method, path, resp.StatusCode, time.Since(start), requestID)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, serverMessage(data, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, serverMessage(data, resp.Status))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func serverMessage(data []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}
