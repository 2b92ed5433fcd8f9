package taskapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPError reports a response whose status was outside 200-299. The server
// answered, so the call is never retried.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	// Detail is the backend's `detail` (or `error`/`message`) field when the
	// error body was JSON.
	Detail string
}

func (e *HTTPError) Error() string {
	text := e.Status
	if text == "" {
		text = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Detail != "" {
		return fmt.Sprintf("api %s %s returned %s: %s", e.Method, e.Path, text, e.Detail)
	}
	return fmt.Sprintf("api %s %s returned %s", e.Method, e.Path, text)
}

// TimeoutError reports an attempt that did not complete before its deadline.
type TimeoutError struct {
	Attempt int
	After   time.Duration // per-attempt deadline that expired
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt %d timed out after %s", e.Attempt, e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout lets callers treat the error like a net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// NetworkError reports a connection-level failure (DNS, refused, reset,
// truncated body).
type NetworkError struct {
	Attempt int
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a 2xx body that was not valid JSON, or JSON that did not
// fit the expected shape.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient transport failure that the
// retry loop would try again.
func IsRetryable(err error) bool {
	var timeoutErr *TimeoutError
	var netErr *NetworkError
	return errors.As(err, &timeoutErr) || errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
