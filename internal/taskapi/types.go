package taskapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Status is a task's workflow state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusOnHold     Status = "On Hold"
	StatusCancelled  Status = "Cancelled"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusOnHold, StatusCancelled}
}

// ParseStatus matches value against the known statuses, ignoring case,
// spacing, dashes and underscores.
func ParseStatus(value string) (Status, error) {
	key := normalizeKey(value)
	for _, s := range Statuses() {
		if normalizeKey(string(s)) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Next returns the status that follows s in display order, wrapping around.
// Unknown statuses advance to Pending.
func (s Status) Next() Status {
	all := Statuses()
	parsed, err := ParseStatus(string(s))
	if err != nil {
		return StatusPending
	}
	for i, candidate := range all {
		if candidate == parsed {
			return all[(i+1)%len(all)]
		}
	}
	return StatusPending
}

// Closed reports whether no more work is expected for the status.
func (s Status) Closed() bool {
	parsed, err := ParseStatus(string(s))
	return err == nil && (parsed == StatusCompleted || parsed == StatusCancelled)
}

// Priority ranks task urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists every priority from least to most urgent.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority matches value against the known priorities, ignoring case.
func ParsePriority(value string) (Priority, error) {
	key := normalizeKey(value)
	for _, p := range Priorities() {
		if normalizeKey(string(p)) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", value)
}

// Rank orders priorities; unknown values rank below Low.
func (p Priority) Rank() int {
	parsed, err := ParsePriority(string(p))
	if err != nil {
		return 0
	}
	for i, candidate := range Priorities() {
		if candidate == parsed {
			return i + 1
		}
	}
	return 0
}

// Task is the canonical task record exchanged with the backend.
type Task struct {
	Name       string   `json:"task_name" yaml:"task_name"`
	AssignedTo string   `json:"assigned_to" yaml:"assigned_to"`
	Client     string   `json:"client,omitempty" yaml:"client,omitempty"`
	Status     Status   `json:"status,omitempty" yaml:"status,omitempty"`
	StartDate  string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Priority   Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ParsedStartDate returns StartDate as time.Time, or the zero value.
func (t Task) ParsedStartDate() time.Time {
	return ParseDate(t.StartDate)
}

// ParsedEndDate returns EndDate as time.Time, or the zero value.
func (t Task) ParsedEndDate() time.Time {
	return ParseDate(t.EndDate)
}

// Overdue reports whether the task is still open after its end date.
func (t Task) Overdue(now time.Time) bool {
	end := t.ParsedEndDate()
	if end.IsZero() || t.Status.Closed() {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, now.Location())
	return endDay.Before(today)
}

// Validate checks the fields the backend requires on create.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task name is required")
	}
	if strings.TrimSpace(t.AssignedTo) == "" {
		return fmt.Errorf("assignee is required")
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("unknown status %q", t.Status)
	}
	if t.Priority != "" {
		if _, err := ParsePriority(string(t.Priority)); err != nil {
			return err
		}
	}
	dates := []struct{ label, value string }{
		{"start date", t.StartDate},
		{"end date", t.EndDate},
	}
	for _, d := range dates {
		if d.value != "" && ParseDate(d.value).IsZero() {
			return fmt.Errorf("%s %q is not YYYY-MM-DD", d.label, d.value)
		}
	}
	return nil
}

// TaskList mirrors GET /api/tasks.
type TaskList struct {
	Tasks     []Task `json:"tasks"`
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SearchResult mirrors GET /api/tasks/search.
type SearchResult struct {
	Query     string `json:"query"`
	Count     int    `json:"count"`
	Results   []Task `json:"results"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TaskUpdate is the body of PUT /api/tasks/{name}.
type TaskUpdate struct {
	Name      string `json:"task_name"`
	NewStatus Status `json:"new_status"`
}

// Message is the acknowledgement returned by mutating endpoints.
type Message struct {
	Message   string `json:"message"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatTurn is one entry of the conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt  string     `json:"prompt"`
	History []ChatTurn `json:"conversation_history,omitempty"`
}

// ChatReply mirrors POST /api/chat. Older backends answer with `answer`
// instead of `response`.
type ChatReply struct {
	Response  string `json:"response"`
	Answer    string `json:"answer,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Text returns whichever reply field the backend filled.
func (r ChatReply) Text() string {
	if strings.TrimSpace(r.Response) != "" {
		return r.Response
	}
	return r.Answer
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// Summary mirrors GET /api/summary.
type Summary struct {
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ParsedTimestamp returns Timestamp as time.Time, or the zero value.
func (s Summary) ParsedTimestamp() time.Time {
	return parseTimestamp(s.Timestamp)
}

// HealthUnavailable is the status CheckHealth reports when the backend could
// not be reached.
const HealthUnavailable = "unavailable"

// Health mirrors GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	// Err holds the failure behind an unavailable status. It is never sent
	// over the wire.
	Err error `json:"-"`
}

// Available reports whether the backend answered the health probe.
func (h Health) Available() bool {
	return !strings.EqualFold(strings.TrimSpace(h.Status), HealthUnavailable)
}

// errorBody captures the fields backends use to explain a failure.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (b errorBody) text() string {
	if len(b.Detail) > 0 {
		var s string
		if err := json.Unmarshal(b.Detail, &s); err == nil {
			return s
		}
		// Validation errors carry a list of objects; keep them verbatim.
		return string(b.Detail)
	}
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// ParseDate accepts YYYY-MM-DD and RFC3339 values.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(dateLayout, value, time.Local); err == nil {
		return t
	}
	return parseTimestamp(value)
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func normalizeKey(value string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(value)))
}
