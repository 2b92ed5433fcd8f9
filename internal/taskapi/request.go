package taskapi

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
)

const maxErrorBody = 64 << 10

// Policy bounds how long one attempt may take and how often a call retries.
type Policy struct {
	// Timeout applies to each attempt, not to the whole call.
	Timeout time.Duration
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number to get the wait before
	// the next attempt.
	BaseDelay time.Duration
}

// DefaultPolicy returns a 10s timeout, 3 attempts and a 1s base delay.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt)
}

// MaxElapsed is the upper bound on a call that exhausts every attempt.
func (p Policy) MaxElapsed() time.Duration {
	total := time.Duration(p.MaxRetries) * p.Timeout
	for attempt := 1; attempt < p.MaxRetries; attempt++ {
		total += p.Delay(attempt)
	}
	return total
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Request describes one logical call.
type Request struct {
	Method string // defaults to GET
	Path   string // relative to the base URL; may carry a query string
	Query  url.Values
	// Body is JSON-encoded and sent with Content-Type: application/json.
	Body   any
	Header http.Header
	// Timeout overrides the policy timeout for each attempt.
	Timeout time.Duration
	// IdempotencyKey is sent as Idempotency-Key and allows a non-idempotent
	// method to be retried after a transport failure.
	IdempotencyKey string
}

// Do performs req and returns the response body as validated JSON.
//
// Each attempt runs under its own deadline. A non-2xx status ends the call
// with *HTTPError and a malformed body with *ParseError. Timeouts and
// connection failures are retried up to the policy's MaxRetries, waiting
// BaseDelay*attempt between attempts, and the last one is returned when
// attempts run out. Non-idempotent methods without an IdempotencyKey get a
// single attempt. Cancelling ctx stops the call with ctx.Err().
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}
	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.policy.Timeout
	}
	attempts := c.policy.MaxRetries
	if !retriesTransport(method, req.IdempotencyKey) {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.attempt(ctx, method, target, payload, req, timeout, attempt)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := c.policy.Delay(attempt)
		c.logf("%s %s: %v; retrying in %s (%d/%d)", method, target.EscapedPath(), err, delay, attempt, attempts)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	c.logf("%s %s: giving up after %d attempt(s): %v", method, target.EscapedPath(), attempts, lastErr)
	return nil, lastErr
}

// DoJSON performs req and decodes the body into dest. A nil dest discards
// the body after validation.
func (c *Client) DoJSON(ctx context.Context, req Request, dest any) error {
	raw, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &ParseError{Path: req.Path, Err: err}
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method string, target *url.URL, payload []byte, req Request, timeout time.Duration, n int) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(attemptCtx, err, n, timeout)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(method, target, resp)
	}

	// Read the whole body inside the attempt so a truncated transfer counts
	// as a failed attempt rather than a partial result.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(attemptCtx, err, n, timeout)
	}
	if resp.StatusCode == http.StatusNoContent {
		return json.RawMessage("null"), nil
	}
	var parsed json.RawMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ParseError{Path: target.EscapedPath(), Err: err}
	}
	return parsed, nil
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	rel, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	if rel.Scheme != "" || rel.Host != "" {
		return nil, fmt.Errorf("path %q must be relative to the api url", path)
	}

	escaped := rel.EscapedPath()
	if !strings.HasPrefix(escaped, "/") {
		escaped = "/" + escaped
	}
	full := strings.TrimRight(c.baseURL.EscapedPath(), "/") + escaped
	decoded, err := url.PathUnescape(full)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}

	u := *c.baseURL
	u.Path = decoded
	u.RawPath = full
	values := rel.Query()
	for key, vs := range query {
		for _, v := range vs {
			values.Add(key, v)
		}
	}
	u.RawQuery = values.Encode()
	return &u, nil
}

func newHTTPError(method string, target *url.URL, resp *http.Response) *HTTPError {
	httpErr := &HTTPError{
		Method:     method,
		Path:       target.EscapedPath(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		httpErr.Detail = body.text()
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) <= 200 {
		httpErr.Detail = text
	}
	return httpErr
}

func transportError(attemptCtx context.Context, err error, attempt int, timeout time.Duration) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return &TimeoutError{Attempt: attempt, After: timeout, Err: err}
	}
	return &NetworkError{Attempt: attempt, Err: err}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func retriesTransport(method, idempotencyKey string) bool {
	if idempotencyKey != "" {
		return true
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
