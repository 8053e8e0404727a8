// Package todoist is a small client for the Todoist REST API: labels and task creation.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultBaseURL = "https://api.todoist.com/rest/v2"

// Client talks to Todoist with a Bearer API token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-2xx response from Todoist. It always carries a well-formed status.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist HTTP %d: %s", e.StatusCode, e.Body)
}

// Label is a personal label
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateTaskRequest is the payload of POST /tasks
type CreateTaskRequest struct {
	Content   string   `json:"content"`
	ProjectID string   `json:"project_id,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Priority  int      `json:"priority,omitempty"`
	DueString string   `json:"due_string,omitempty"`

	// RequestID is sent as X-Request-Id so Todoist drops a replayed create.
	// Reuse the same value across retries of one task.
	RequestID string `json:"-"`
}

// Task is the subset of a created task the service cares about
type Task struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Option configures Client behavior
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Todoist client. An empty baseURL means the public API.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListLabels returns every personal label
func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	var labels []Label
	if err := c.do(ctx, http.MethodGet, "/labels", "", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// CreateLabel creates a personal label and returns it with its new ID
func (c *Client) CreateLabel(ctx context.Context, name string) (*Label, error) {
	var label Label
	if err := c.do(ctx, http.MethodPost, "/labels", uuid.New().String(), map[string]string{"name": name}, &label); err != nil {
		return nil, err
	}
	return &label, nil
}

// CreateTask creates a task
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	var task Task
	if err := c.do(ctx, http.MethodPost, "/tasks", requestID, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		return &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
