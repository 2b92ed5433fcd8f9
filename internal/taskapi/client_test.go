package taskapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAPIURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultAPIURL)
	}

	u, err = parseBaseURL("https://example.com:1234/prefix/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "/prefix" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("ftp://example.com"); err == nil {
		t.Fatalf("parseBaseURL(ftp) returned nil error, want error")
	}
}

func TestNewClient_NormalizesPolicyAndEndpoints(t *testing.T) {
	c, err := NewClient("example.com",
		WithPolicy(Policy{Timeout: 0, MaxRetries: -1, BaseDelay: -time.Second}),
		WithEndpoints(Endpoints{Tasks: "v2/tasks/"}),
	)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	p := c.Policy()
	if p.Timeout != 10*time.Second || p.MaxRetries != 3 || p.BaseDelay != 0 {
		t.Fatalf("Policy = %#v, want defaults with zero delay", p)
	}
	if c.endpoints.Tasks != "/v2/tasks" {
		t.Fatalf("Tasks endpoint = %q, want /v2/tasks", c.endpoints.Tasks)
	}
	if c.endpoints.Health != "/api/health" {
		t.Fatalf("Health endpoint = %q, want default", c.endpoints.Health)
	}
}

func TestClient_FetchesEndpointsAndEncodesBodies(t *testing.T) {
	t.Parallel()

	var (
		mu           sync.Mutex
		gotSearch    url.Values
		gotChat      ChatRequest
		gotAsk       AskRequest
		gotCreate    Task
		gotUserAgent string
		gotIdemKey   string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/health":
			_ = json.NewEncoder(w).Encode(Health{Status: "healthy", Service: "tasks"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks":
			_ = json.NewEncoder(w).Encode(TaskList{Tasks: []Task{{Name: "A", AssignedTo: "B"}}, Count: 1})
		case r.Method == http.MethodPost && r.URL.Path == "/api/tasks":
			gotIdemKey = r.Header.Get("Idempotency-Key")
			_ = json.NewDecoder(r.Body).Decode(&gotCreate)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks/search":
			gotSearch = r.URL.Query()
			_ = json.NewEncoder(w).Encode(SearchResult{Query: "ann", Count: 0})
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
			_ = json.NewDecoder(r.Body).Decode(&gotChat)
			_, _ = w.Write([]byte(`{"response":"all good"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/ask":
			_ = json.NewDecoder(r.Body).Decode(&gotAsk)
			_, _ = w.Write([]byte(`{"answer":"42"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/summary":
			_, _ = w.Write([]byte(`{"summary":"on track","timestamp":"2025-03-01T10:00:00"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	if h := c.CheckHealth(ctx); !h.Available() || h.Service != "tasks" {
		t.Fatalf("CheckHealth = %#v, want healthy tasks", h)
	}

	list, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if list.Count != 1 || len(list.Tasks) != 1 || list.Tasks[0].Name != "A" {
		t.Fatalf("ListTasks = %#v, want one task A", list)
	}

	msg, err := c.CreateTask(ctx, Task{Name: "A", AssignedTo: "B", Status: StatusPending})
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if msg.Message != "ok" {
		t.Fatalf("CreateTask message = %q, want ok", msg.Message)
	}

	if _, err := c.SearchTasks(ctx, "  ann "); err != nil {
		t.Fatalf("SearchTasks returned error: %v", err)
	}

	reply, err := c.SendChatMessage(ctx, "status?", ChatTurn{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("SendChatMessage returned error: %v", err)
	}
	if reply.Text() != "all good" {
		t.Fatalf("chat reply = %q, want all good", reply.Text())
	}

	answer, err := c.Ask(ctx, "meaning?")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if answer.Text() != "42" {
		t.Fatalf("ask reply = %q, want 42", answer.Text())
	}

	summary, err := c.GetProjectSummary(ctx)
	if err != nil {
		t.Fatalf("GetProjectSummary returned error: %v", err)
	}
	if summary.Summary != "on track" || summary.ParsedTimestamp().IsZero() {
		t.Fatalf("summary = %#v, want on track with timestamp", summary)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotCreate.Name != "A" || gotCreate.AssignedTo != "B" || gotCreate.Status != StatusPending {
		t.Fatalf("create body = %#v, want task A/B/Pending", gotCreate)
	}
	if _, err := uuid.Parse(gotIdemKey); err != nil {
		t.Fatalf("Idempotency-Key = %q, want uuid: %v", gotIdemKey, err)
	}
	if gotSearch.Get("query") != "ann" {
		t.Fatalf("search query = %v, want query=ann", gotSearch)
	}
	if gotChat.Prompt != "status?" || len(gotChat.History) != 1 || gotChat.History[0].Content != "hi" {
		t.Fatalf("chat body = %#v, want prompt and history", gotChat)
	}
	if gotAsk.Question != "meaning?" {
		t.Fatalf("ask body = %#v, want question", gotAsk)
	}
	if !strings.HasPrefix(gotUserAgent, "taskdeck/") {
		t.Fatalf("User-Agent = %q, want taskdeck/*", gotUserAgent)
	}
}

func TestClient_TaskIdentifiersArePercentEncoded(t *testing.T) {
	t.Parallel()

	names := []string{"task/with space", "what?now", "100% done", "plain"}

	var mu sync.Mutex
	var gotPaths []string
	var gotMethods []string
	var gotUpdate TaskUpdate

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPaths = append(gotPaths, r.URL.EscapedPath())
		gotMethods = append(gotMethods, r.Method)
		if r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&gotUpdate)
		}
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"message":"done"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	for _, name := range names {
		if _, err := c.UpdateTask(context.Background(), name, TaskUpdate{NewStatus: StatusCompleted}); err != nil {
			t.Fatalf("UpdateTask(%q) returned error: %v", name, err)
		}
		if _, err := c.DeleteTask(context.Background(), name); err != nil {
			t.Fatalf("DeleteTask(%q) returned error: %v", name, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(gotPaths) != 2*len(names) {
		t.Fatalf("got %d requests, want %d", len(gotPaths), 2*len(names))
	}
	for i, escaped := range gotPaths {
		name := names[i/2]
		segment, ok := strings.CutPrefix(escaped, "/api/tasks/")
		if !ok || strings.Contains(segment, "/") {
			t.Fatalf("path %q, want a single segment under /api/tasks/", escaped)
		}
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			t.Fatalf("PathUnescape(%q): %v", segment, err)
		}
		if decoded != name {
			t.Fatalf("decoded segment = %q, want %q", decoded, name)
		}
	}
	if gotMethods[0] != http.MethodPut || gotMethods[1] != http.MethodDelete {
		t.Fatalf("methods = %v, want PUT then DELETE", gotMethods[:2])
	}
	if gotUpdate.NewStatus != StatusCompleted || gotUpdate.Name != names[len(names)-1] {
		t.Fatalf("update body = %#v, want task_name and new_status", gotUpdate)
	}
}

func TestClient_ListTasksBuildsURLFromBase(t *testing.T) {
	var gotURL, gotMethod string
	var gotBody []byte
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		gotMethod = r.Method
		if r.Body != nil {
			gotBody, _ = io.ReadAll(r.Body)
		}
		return jsonResponse(r, http.StatusOK, `{"tasks":[{"task_name":"A","assigned_to":"B"},{"task_name":"C","assigned_to":"D"}],"count":2}`), nil
	})

	c := newTestClient(t, "https://api.example.com", rt, DefaultPolicy())
	list, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if gotMethod != http.MethodGet || gotURL != "https://api.example.com/api/tasks" {
		t.Fatalf("request = %s %s, want GET https://api.example.com/api/tasks", gotMethod, gotURL)
	}
	if len(gotBody) != 0 {
		t.Fatalf("request body = %q, want empty", gotBody)
	}
	if list.Count != 2 || len(list.Tasks) != 2 || list.Tasks[1].Name != "C" {
		t.Fatalf("ListTasks = %#v, want two tasks unchanged", list)
	}
}

func TestClient_BasePathPrefixIsKept(t *testing.T) {
	var gotPath string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.EscapedPath()
		return jsonResponse(r, http.StatusOK, `{"summary":"s"}`), nil
	})
	c := newTestClient(t, "http://example.test/backend/", rt, DefaultPolicy())
	if _, err := c.GetProjectSummary(context.Background()); err != nil {
		t.Fatalf("GetProjectSummary returned error: %v", err)
	}
	if gotPath != "/backend/api/summary" {
		t.Fatalf("path = %q, want /backend/api/summary", gotPath)
	}
}

func TestClient_CreateTaskStatusHandling(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var task Task
		_ = json.NewDecoder(r.Body).Decode(&task)
		mu.Lock()
		calls[task.Name]++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if task.Name == "bad" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"bad"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	msg, err := c.CreateTask(context.Background(), Task{Name: "A", AssignedTo: "B"})
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if msg.Message != "ok" {
		t.Fatalf("message = %q, want ok", msg.Message)
	}

	_, err = c.CreateTask(context.Background(), Task{Name: "bad", AssignedTo: "B"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("CreateTask error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusUnprocessableEntity || httpErr.Detail != "bad" {
		t.Fatalf("HTTPError = %#v, want 422 detail=bad", httpErr)
	}
	if StatusCode(err) != 422 {
		t.Fatalf("StatusCode(err) = %d, want 422", StatusCode(err))
	}

	mu.Lock()
	defer mu.Unlock()
	if calls["A"] != 1 || calls["bad"] != 1 {
		t.Fatalf("calls = %v, want exactly one attempt each", calls)
	}
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/summary":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case "/api/tasks":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.GetProjectSummary(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("GetProjectSummary error = %v, want decode response error", err)
	}

	_, err = c.ListTasks(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("ListTasks error = %v, want status 500 error", err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Detail != "nope" {
		t.Fatalf("ListTasks error = %#v, want HTTPError with plain-text detail", err)
	}
}

func TestClient_RejectsBlankArguments(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()
	if _, err := c.UpdateTask(ctx, " ", TaskUpdate{}); err == nil {
		t.Fatalf("UpdateTask returned nil error, want error")
	}
	if _, err := c.DeleteTask(ctx, ""); err == nil {
		t.Fatalf("DeleteTask returned nil error, want error")
	}
	if _, err := c.SearchTasks(ctx, ""); err == nil {
		t.Fatalf("SearchTasks returned nil error, want error")
	}
	if _, err := c.SendChatMessage(ctx, "  "); err == nil {
		t.Fatalf("SendChatMessage returned nil error, want error")
	}

	var nilClient *Client
	if h := nilClient.CheckHealth(ctx); h.Available() {
		t.Fatalf("nil client health = %#v, want unavailable", h)
	}
	if _, err := nilClient.ListTasks(ctx); err == nil {
		t.Fatalf("nil client ListTasks returned nil error, want error")
	}
}
