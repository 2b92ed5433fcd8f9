package report

import (
	"sort"
	"strings"
	"time"

	"github.com/five82/taskdeck/internal/taskapi"
)

// UnknownStatus buckets tasks whose status is blank or not recognized.
const UnknownStatus = "Unknown"

// Count is one labelled bar of a chart.
type Count struct {
	Label string
	Value int
}

// Stats aggregates a task list for the summary view and the CLI.
type Stats struct {
	Total      int
	ByStatus   []Count // known statuses in display order, then Unknown
	ByAssignee []Count // most tasks first
	ByPriority []Count // High to Low, then Unknown
	Overdue    int
	Completed  int
}

// CompletionRate returns the completed share of all tasks in [0,1].
func (s Stats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// StatusCount returns the number of tasks with the given status.
func (s Stats) StatusCount(status taskapi.Status) int {
	for _, c := range s.ByStatus {
		if c.Label == string(status) {
			return c.Value
		}
	}
	return 0
}

// Summarize counts tasks per status, assignee and priority, and how many are
// overdue as of now.
func Summarize(tasks []taskapi.Task, now time.Time) Stats {
	stats := Stats{Total: len(tasks)}

	statusCounts := map[string]int{}
	priorityCounts := map[string]int{}
	assigneeCounts := map[string]int{}

	for _, task := range tasks {
		status := UnknownStatus
		if parsed, err := taskapi.ParseStatus(string(task.Status)); err == nil {
			status = string(parsed)
		}
		statusCounts[status]++
		if status == string(taskapi.StatusCompleted) {
			stats.Completed++
		}

		priority := UnknownStatus
		if parsed, err := taskapi.ParsePriority(string(task.Priority)); err == nil {
			priority = string(parsed)
		}
		priorityCounts[priority]++

		assignee := strings.TrimSpace(task.AssignedTo)
		if assignee == "" {
			assignee = "Unassigned"
		}
		assigneeCounts[assignee]++

		if task.Overdue(now) {
			stats.Overdue++
		}
	}

	for _, status := range taskapi.Statuses() {
		stats.ByStatus = append(stats.ByStatus, Count{Label: string(status), Value: statusCounts[string(status)]})
	}
	if n := statusCounts[UnknownStatus]; n > 0 {
		stats.ByStatus = append(stats.ByStatus, Count{Label: UnknownStatus, Value: n})
	}

	priorities := taskapi.Priorities()
	for i := len(priorities) - 1; i >= 0; i-- {
		label := string(priorities[i])
		stats.ByPriority = append(stats.ByPriority, Count{Label: label, Value: priorityCounts[label]})
	}
	if n := priorityCounts[UnknownStatus]; n > 0 {
		stats.ByPriority = append(stats.ByPriority, Count{Label: UnknownStatus, Value: n})
	}

	for name, n := range assigneeCounts {
		stats.ByAssignee = append(stats.ByAssignee, Count{Label: name, Value: n})
	}
	sort.Slice(stats.ByAssignee, func(i, j int) bool {
		a, b := stats.ByAssignee[i], stats.ByAssignee[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Label < b.Label
	})

	return stats
}

// FilterByStatus returns the tasks whose status matches status. An empty
// status returns every task.
func FilterByStatus(tasks []taskapi.Task, status taskapi.Status) []taskapi.Task {
	if status == "" {
		return tasks
	}
	var out []taskapi.Task
	for _, task := range tasks {
		if parsed, err := taskapi.ParseStatus(string(task.Status)); err == nil && parsed == status {
			out = append(out, task)
		}
	}
	return out
}

// Match reports whether query appears in the task's name, assignee or client,
// ignoring case.
func Match(task taskapi.Task, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, field := range []string{task.Name, task.AssignedTo, task.Client} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
