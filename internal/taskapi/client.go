package taskapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API defines the backend operations the dashboard relies on.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	CheckHealth(ctx context.Context) Health
	ListTasks(ctx context.Context) (*TaskList, error)
	SearchTasks(ctx context.Context, query string) (*SearchResult, error)
	CreateTask(ctx context.Context, task Task) (*Message, error)
	UpdateTask(ctx context.Context, name string, update TaskUpdate) (*Message, error)
	DeleteTask(ctx context.Context, name string) (*Message, error)
	SendChatMessage(ctx context.Context, text string, history ...ChatTurn) (*ChatReply, error)
	Ask(ctx context.Context, question string) (*ChatReply, error)
	GetProjectSummary(ctx context.Context) (*Summary, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

const (
	defaultAPIURL    = "127.0.0.1:8000"
	defaultUserAgent = "taskdeck/0.1"
)

// Client talks to the task backend's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	policy    Policy
	endpoints Endpoints
	logger    *log.Logger

	// sleep waits between attempts; tests swap it to observe backoff.
	sleep  func(ctx context.Context, d time.Duration) error
	newKey func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithPolicy replaces the timeout and retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithEndpoints replaces the endpoint registry. Blank paths keep defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

// WithHTTPClient sets the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger reports failed attempts to logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		policy:    DefaultPolicy(),
		endpoints: DefaultEndpoints(),
		sleep:     sleepContext,
		newKey:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = c.policy.normalized()
	c.endpoints = c.endpoints.withDefaults()
	return c, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Policy returns the effective timeout and retry policy.
func (c *Client) Policy() Policy {
	return c.policy
}

// CheckHealth probes the backend. It never fails: any error, including
// exhausted retries, is reported as Health{Status: "unavailable"} with the
// cause in Err.
func (c *Client) CheckHealth(ctx context.Context) Health {
	if c == nil {
		return Health{Status: HealthUnavailable, Err: fmt.Errorf("client is nil")}
	}
	var health Health
	if err := c.DoJSON(ctx, Request{Method: http.MethodGet, Path: c.endpoints.Health}, &health); err != nil {
		return Health{Status: HealthUnavailable, Err: err}
	}
	return health
}

// ListTasks retrieves every task.
func (c *Client) ListTasks(ctx context.Context) (*TaskList, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload TaskList
	if err := c.DoJSON(ctx, Request{Method: http.MethodGet, Path: c.endpoints.Tasks}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchTasks finds tasks whose name or assignee matches query.
func (c *Client) SearchTasks(ctx context.Context, query string) (*SearchResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query required")
	}
	req := Request{
		Method: http.MethodGet,
		Path:   c.endpoints.Search,
		Query:  url.Values{"query": []string{query}},
	}
	var payload SearchResult
	if err := c.DoJSON(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateTask submits a new task. Each call carries a fresh Idempotency-Key so
// a retried attempt can be recognized by the backend.
func (c *Client) CreateTask(ctx context.Context, task Task) (*Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	req := Request{
		Method:         http.MethodPost,
		Path:           c.endpoints.Tasks,
		Body:           task,
		IdempotencyKey: c.newKey(),
	}
	var payload Message
	if err := c.DoJSON(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpdateTask changes the status of the task identified by name.
func (c *Client) UpdateTask(ctx context.Context, name string, update TaskUpdate) (*Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("task name required")
	}
	if update.Name == "" {
		update.Name = name
	}
	req := Request{
		Method: http.MethodPut,
		Path:   c.endpoints.taskPath(name),
		Body:   update,
	}
	var payload Message
	if err := c.DoJSON(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DeleteTask removes the task identified by name.
func (c *Client) DeleteTask(ctx context.Context, name string) (*Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("task name required")
	}
	var payload Message
	if err := c.DoJSON(ctx, Request{Method: http.MethodDelete, Path: c.endpoints.taskPath(name)}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SendChatMessage asks the backend's assistant about the project.
func (c *Client) SendChatMessage(ctx context.Context, text string, history ...ChatTurn) (*ChatReply, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message is empty")
	}
	req := Request{
		Method:         http.MethodPost,
		Path:           c.endpoints.Chat,
		Body:           ChatRequest{Prompt: text, History: history},
		IdempotencyKey: c.newKey(),
	}
	var payload ChatReply
	if err := c.DoJSON(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Ask sends a single question without conversation history.
func (c *Client) Ask(ctx context.Context, question string) (*ChatReply, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}
	req := Request{
		Method:         http.MethodPost,
		Path:           c.endpoints.Ask,
		Body:           AskRequest{Question: question},
		IdempotencyKey: c.newKey(),
	}
	var payload ChatReply
	if err := c.DoJSON(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetProjectSummary retrieves the AI-generated project summary.
func (c *Client) GetProjectSummary(ctx context.Context) (*Summary, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Summary
	if err := c.DoJSON(ctx, Request{Method: http.MethodGet, Path: c.endpoints.Summary}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
