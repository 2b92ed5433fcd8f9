package taskapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func newTestClient(t *testing.T, baseURL string, rt http.RoundTripper, p Policy) *Client {
	t.Helper()
	c, err := NewClient(baseURL, WithPolicy(p), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

// recordSleeps replaces the client's backoff wait and returns the delays it
// was asked for.
func recordSleeps(c *Client) *[]time.Duration {
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return &delays
}

func TestPolicy_DelayAndMaxElapsed(t *testing.T) {
	p := Policy{Timeout: 2 * time.Second, MaxRetries: 3, BaseDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Fatalf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	// three 2s attempts plus 1s and 2s waits
	if got := p.MaxElapsed(); got != 9*time.Second {
		t.Fatalf("MaxElapsed() = %v, want 9s", got)
	}
}

func TestDo_RetriesNetworkErrorsWithLinearBackoff(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return jsonResponse(r, http.StatusOK, `{"tasks":[],"count":0}`), nil
	})

	base := 50 * time.Millisecond
	c := newTestClient(t, "http://example.test", rt, Policy{Timeout: time.Second, MaxRetries: 3, BaseDelay: base})
	delays := recordSleeps(c)

	list, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if list.Count != 0 {
		t.Fatalf("Count = %d, want 0", list.Count)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	want := []time.Duration{base, 2 * base}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Fatalf("delays = %v, want %v", *delays, want)
		}
	}
}

func TestDo_ExhaustedRetriesReturnLastTransportError(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("dial tcp: connection refused")
	})
	c := newTestClient(t, "http://example.test", rt, Policy{Timeout: time.Second, MaxRetries: 3, BaseDelay: time.Millisecond})
	delays := recordSleeps(c)

	_, err := c.GetProjectSummary(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if netErr.Attempt != 3 {
		t.Fatalf("Attempt = %d, want 3", netErr.Attempt)
	}
	if !IsRetryable(err) {
		t.Fatalf("IsRetryable(%v) = false, want true", err)
	}
	if calls != 3 || len(*delays) != 2 {
		t.Fatalf("calls = %d delays = %v, want 3 calls and 2 waits", calls, *delays)
	}
}

func TestDo_HTTPErrorsAreNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		calls := 0
		rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(r, status, `{"detail":"nope"}`), nil
		})
		c := newTestClient(t, "http://example.test", rt, DefaultPolicy())
		delays := recordSleeps(c)

		_, err := c.ListTasks(context.Background())
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("status %d: error = %v, want *HTTPError", status, err)
		}
		if httpErr.StatusCode != status || httpErr.Detail != "nope" {
			t.Fatalf("status %d: HTTPError = %#v", status, httpErr)
		}
		if IsRetryable(err) {
			t.Fatalf("status %d: IsRetryable = true, want false", status)
		}
		if calls != 1 || len(*delays) != 0 {
			t.Fatalf("status %d: calls = %d delays = %v, want a single attempt", status, calls, *delays)
		}
	}
}

func TestDo_MalformedBodyIsParseErrorWithoutRetry(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(r, http.StatusOK, `<html>oops</html>`), nil
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())
	recordSleeps(c)

	_, err := c.ListTasks(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDo_NoContentYieldsNull(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusNoContent, ""), nil
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())

	raw, err := c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/api/tasks/a"})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("body = %q, want null", raw)
	}
}

func TestDo_PostWithoutIdempotencyKeyIsNotRetried(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection reset by peer")
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())
	delays := recordSleeps(c)

	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/tasks", Body: Task{Name: "A"}})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", err)
	}
	if calls != 1 || len(*delays) != 0 {
		t.Fatalf("calls = %d delays = %v, want a single attempt", calls, *delays)
	}
}

func TestCreateTask_RetriesReuseIdempotencyKey(t *testing.T) {
	var keys []string
	var bodies []string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		if len(keys) == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return jsonResponse(r, http.StatusCreated, `{"message":"created"}`), nil
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())
	recordSleeps(c)
	c.newKey = func() string { return "key-1" }

	msg, err := c.CreateTask(context.Background(), Task{Name: "A", AssignedTo: "B"})
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if msg.Message != "created" {
		t.Fatalf("message = %q, want created", msg.Message)
	}
	if len(keys) != 2 || keys[0] != "key-1" || keys[1] != "key-1" {
		t.Fatalf("keys = %v, want the same key on both attempts", keys)
	}
	if bodies[0] == "" || bodies[0] != bodies[1] {
		t.Fatalf("bodies = %q, want identical non-empty bodies", bodies)
	}
}

func TestDo_TimeoutsAreRetriedWithinBound(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	p := Policy{Timeout: 50 * time.Millisecond, MaxRetries: 3, BaseDelay: 10 * time.Millisecond}
	c, err := NewClient(server.URL, WithPolicy(p))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	start := time.Now()
	_, err = c.ListTasks(context.Background())
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if timeoutErr.Attempt != 3 || timeoutErr.After != p.Timeout {
		t.Fatalf("TimeoutError = %#v, want attempt 3 with policy timeout", timeoutErr)
	}
	if elapsed > p.MaxElapsed()+time.Second {
		t.Fatalf("elapsed = %v, want at most %v plus scheduling slack", elapsed, p.MaxElapsed())
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestCheckHealth_UnreachableBackendIsUnavailable(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("no such host")
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())
	recordSleeps(c)

	h := c.CheckHealth(context.Background())
	if h.Status != HealthUnavailable || h.Available() {
		t.Fatalf("health = %#v, want unavailable", h)
	}
	if h.Err == nil {
		t.Fatalf("health.Err = nil, want cause")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.ListTasks(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestDo_CustomHeadersAndQuery(t *testing.T) {
	var got *http.Request
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		return jsonResponse(r, http.StatusOK, `{}`), nil
	})
	c := newTestClient(t, "http://example.test", rt, DefaultPolicy())

	_, err := c.Do(context.Background(), Request{
		Path:   "/api/tasks/search?query=a+b",
		Query:  map[string][]string{"limit": {"5"}},
		Header: http.Header{"X-Trace": []string{"abc"}},
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got.Method != http.MethodGet {
		t.Fatalf("method = %q, want GET", got.Method)
	}
	if got.Header.Get("X-Trace") != "abc" || got.Header.Get("Accept") != "application/json" {
		t.Fatalf("headers = %v, want X-Trace and Accept", got.Header)
	}
	if got.Header.Get("Content-Type") != "" {
		t.Fatalf("Content-Type = %q, want none without a body", got.Header.Get("Content-Type"))
	}
	q := got.URL.Query()
	if q.Get("query") != "a b" || q.Get("limit") != "5" {
		t.Fatalf("query = %v, want query and limit", q)
	}

	if _, err := c.Do(context.Background(), Request{Path: "https://elsewhere.test/x"}); err == nil {
		t.Fatalf("absolute path accepted, want error")
	}
}
