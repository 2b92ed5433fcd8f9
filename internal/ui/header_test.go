package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/taskdeck/internal/report"
	"github.com/five82/taskdeck/internal/taskapi"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

func TestClassifyConnectionError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", &taskapi.TimeoutError{Attempt: 3, After: time.Second, Err: context.DeadlineExceeded}, "TIMEOUT"},
		{"http", &taskapi.HTTPError{StatusCode: 503}, "HTTP 503"},
		{"parse", &taskapi.ParseError{Path: "/api/tasks", Err: errors.New("bad json")}, "BAD RESPONSE"},
		{"refused", &taskapi.NetworkError{Attempt: 3, Err: errConnRefused}, "OFFLINE"},
		{"dns", &taskapi.NetworkError{Attempt: 1, Err: errors.New("lookup api: no such host")}, "HOST NOT FOUND"},
		{"reset", &taskapi.NetworkError{Attempt: 1, Err: errors.New("connection reset by peer")}, "NETWORK"},
		{"wrapped", fmt.Errorf("list tasks: %w", &taskapi.HTTPError{StatusCode: 404}), "HTTP 404"},
		{"other", errors.New("boom"), "ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyConnectionError(tc.err); got != tc.want {
				t.Fatalf("classifyConnectionError = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"detail", &taskapi.HTTPError{StatusCode: 422, Detail: "task_name is required"}, "422: task_name is required"},
		{"timeout", &taskapi.TimeoutError{Attempt: 3, After: time.Second}, "timed out after 3 attempts"},
		{"network", &taskapi.NetworkError{Attempt: 3, Err: errConnRefused}, "backend unreachable after 3 attempts"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := describeError(tc.err); got != tc.want {
				t.Fatalf("describeError = %q, want %q", got, tc.want)
			}
		})
	}

	noDetail := describeError(&taskapi.HTTPError{Method: "GET", Path: "/api/tasks", StatusCode: 500})
	if !strings.Contains(noDetail, "500") {
		t.Fatalf("describeError without detail = %q", noDetail)
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("short", 10); got != "short" {
		t.Fatalf("truncateMiddle short = %q", got)
	}
	if got := truncateMiddle("abcdef", 4); got != "abcd" {
		t.Fatalf("truncateMiddle tiny limit = %q, want abcd", got)
	}
	got := truncateMiddle("/home/user/.local/state/taskdeck/taskdeck.log", 20)
	if len([]rune(got)) != 20 || !strings.Contains(got, "...") || !strings.HasSuffix(got, ".log") {
		t.Fatalf("truncateMiddle = %q", got)
	}
}

func TestStringHelpers(t *testing.T) {
	if got := truncate("  hello world  ", 8); got != "hello..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("héllo", 3); got != "hél" {
		t.Fatalf("truncate runes = %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padRight("abcdef", 5); got != "ab..." {
		t.Fatalf("padRight long = %q", got)
	}
	if got := orDash("  "); got != "—" {
		t.Fatalf("orDash blank = %q", got)
	}
	if got := clamp(5, 0, -1); got != 0 {
		t.Fatalf("clamp empty range = %d", got)
	}
}

func TestToastExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tt := newToast(toastSuccess, "saved", now)
	if tt.expired(now.Add(ToastTTL - time.Millisecond)) {
		t.Fatal("toast expired early")
	}
	if !tt.expired(now.Add(ToastTTL)) {
		t.Fatal("toast should expire at TTL")
	}
	if (toast{}).expired(now) {
		t.Fatal("empty toast never expires")
	}
}

func TestNextFilterAndSort(t *testing.T) {
	if got := nextFilter(""); got != taskapi.StatusPending {
		t.Fatalf("nextFilter(all) = %q", got)
	}
	if got := nextFilter(taskapi.StatusCancelled); got != "" {
		t.Fatalf("nextFilter(Cancelled) = %q, want all", got)
	}

	rows := []taskapi.Task{
		{Name: "b", Status: taskapi.StatusPending, Priority: taskapi.PriorityLow},
		{Name: "a", Status: taskapi.StatusPending, Priority: taskapi.PriorityHigh},
		{Name: "late", Status: taskapi.StatusPending, Priority: taskapi.PriorityLow, EndDate: "2025-01-01"},
		{Name: "done", Status: taskapi.StatusCompleted, Priority: taskapi.PriorityHigh},
		{Name: "odd", Status: "Blocked"},
	}
	sortTasks(rows)
	got := strings.Join(names(rows), ",")
	if got != "a,late,b,odd,done" {
		t.Fatalf("sortTasks = %s", got)
	}
}

func TestWriteExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	path, err := writeExport(dir, sampleTasks(), now)
	if err != nil {
		t.Fatalf("writeExport: %v", err)
	}
	if filepath.Base(path) != "tasks-20250310-093000.csv" {
		t.Fatalf("export name = %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != strings.Join(report.CSVHeader, ",") {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(lines))
	}
}

func TestFormatDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	if got := formatDate("2025-03-10", now); got != "2025-03-10 (today)" {
		t.Fatalf("formatDate today = %q", got)
	}
	if got := formatDate("2025-03-03", now); got != "2025-03-03 (1 week ago)" {
		t.Fatalf("formatDate past = %q", got)
	}
	if got := formatDate("next week", now); got != "next week" {
		t.Fatalf("formatDate unparsed = %q", got)
	}
	if got := formatDate("", now); got != "—" {
		t.Fatalf("formatDate blank = %q", got)
	}
}

func TestRenderBoxHeight(t *testing.T) {
	m := New(Options{})
	box := m.renderBox("Title", "one\ntwo", 30, 6, true)
	lines := strings.Split(box, "\n")
	if len(lines) != 6 {
		t.Fatalf("box lines = %d, want 6", len(lines))
	}
	if !strings.Contains(lines[0], "Title") {
		t.Fatalf("title missing from top border: %q", lines[0])
	}
}
