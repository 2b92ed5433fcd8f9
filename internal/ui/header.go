package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/taskdeck/internal/report"
	"github.com/five82/taskdeck/internal/taskapi"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.snapshot.HasHealth && !m.snapshot.HasTasks {
		return m.renderConnectingHeader(styles, bg)
	}

	return styles.Header.Width(m.width).Render(m.buildStatusContent(styles, bg))
}

// renderConnectingHeader shows the state before the first poll lands.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if m.snapshot.LastError != nil {
		parts := []string{
			bg.Render("taskdeck", styles.Logo),
			bg.Render("BACKEND "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
		}
		if m.logPath != "" {
			parts = append(parts,
				bg.Render("logs", styles.FaintText)+bg.Space()+
					bg.Render(truncateMiddle(m.logPath, 50), styles.MutedText))
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("taskdeck", styles.Logo) + sep +
			bg.Render("Connecting to backend...", styles.WarningText.Bold(true)),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	sep := bg.Spaces(2)

	parts := []string{bg.Render("taskdeck", styles.Logo)}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	} else {
		online := bg.Render("● ONLINE", styles.SuccessText)
		if service := strings.TrimSpace(m.snapshot.Health.Service); service != "" && !compact {
			online += bg.Space() + bg.Render(service, styles.MutedText)
		}
		parts = append(parts, online)
	}

	stats := report.Summarize(m.snapshot.Tasks, time.Now())
	parts = append(parts,
		bg.Render("Tasks:", styles.MutedText)+bg.Space()+
			bg.Render(humanize.Comma(int64(stats.Total)), styles.Text))

	active := stats.StatusCount(taskapi.StatusInProgress)
	if active > 0 {
		color := lipgloss.Color(styles.StatusColor(string(taskapi.StatusInProgress)))
		parts = append(parts,
			bg.Render(ternary(compact, "A:", "Active:"), styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", active), lipgloss.NewStyle().Foreground(color)))
	}

	overdueStyle := styles.MutedText
	if stats.Overdue > 0 {
		overdueStyle = styles.DangerText
	}
	parts = append(parts,
		bg.Render(ternary(compact, "O:", "Overdue:"), styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", stats.Overdue), overdueStyle))

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.busy() {
		parts = append(parts, m.spinner.View())
	}

	if m.snapshot.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render(classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(describeError(m.snapshot.LastError), maxErr), styles.DangerText))
	} else if m.snapshot.HasHealth && !m.snapshot.Health.Available() && m.snapshot.Health.Err != nil {
		parts = append(parts,
			bg.Render("HEALTH", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(describeError(m.snapshot.Health.Err), 40), styles.DangerText))
	}

	return strings.Join(parts, sep)
}

// busy reports whether a request started from the UI is in flight.
func (m Model) busy() bool {
	return m.chat.pending || m.summary.loading
}

// formatTimestamp formats the last poll time relative to now.
func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return ""
	}
	if time.Since(m.snapshot.LastUpdated) < time.Second {
		return "updated now"
	}
	return "updated " + humanize.Time(m.snapshot.LastUpdated)
}

// classifyConnectionError returns a short label for a backend failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}

	var (
		timeoutErr *taskapi.TimeoutError
		httpErr    *taskapi.HTTPError
		parseErr   *taskapi.ParseError
		netErr     *taskapi.NetworkError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return "TIMEOUT"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	case errors.As(err, &parseErr):
		return "BAD RESPONSE"
	case errors.As(err, &netErr):
		msg := netErr.Error()
		switch {
		case strings.Contains(msg, "connection refused"):
			return "OFFLINE"
		case strings.Contains(msg, "no such host"):
			return "HOST NOT FOUND"
		default:
			return "NETWORK"
		}
	default:
		return "ERROR"
	}
}

// describeError turns client errors into one line for toasts and the chat
// transcript. HTTP errors show the backend's own detail when it sent one.
func describeError(err error) string {
	if err == nil {
		return ""
	}

	var (
		timeoutErr *taskapi.TimeoutError
		httpErr    *taskapi.HTTPError
		netErr     *taskapi.NetworkError
	)
	switch {
	case errors.As(err, &httpErr):
		if httpErr.Detail != "" {
			return fmt.Sprintf("%d: %s", httpErr.StatusCode, httpErr.Detail)
		}
		return httpErr.Error()
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("timed out after %d attempts", timeoutErr.Attempt)
	case errors.As(err, &netErr):
		return fmt.Sprintf("backend unreachable after %d attempts", netErr.Attempt)
	default:
		return err.Error()
	}
}

// renderCommandBar renders the key hints for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewChat:
		commands = []cmd{
			{"enter", "Send"},
			{"ctrl+o", "Ask"},
			{"ctrl+l", "Clear"},
			{"↑/↓", "Scroll"},
			{"esc", "Tasks"},
			{"tab", "Next view"},
		}
	case ViewSummary:
		commands = []cmd{
			{"r", "Regenerate"},
			{"j/k", "Scroll"},
			{"1", "Tasks"},
			{"tab", "Next view"},
			{"?", "More"},
		}
	case ViewLogs:
		commands = []cmd{
			{"space", ternary(m.logs.follow, "Pause", "Follow")},
			{"/", "Filter"},
			{"j/k", "Scroll"},
			{"r", "Reload"},
			{"tab", "Next view"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"f", m.filterLabel()},
			{"/", "Search"},
			{"n", "New"},
			{"s", "Status"},
			{"d", "Delete"},
			{"x", "Export"},
			{"tab", "Next view"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	segments = append(segments,
		bg.Render("view", styles.FaintText)+colon+bg.Render(m.currentView.String(), styles.Text))
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// filterLabel names the current status filter for the command bar.
func (m Model) filterLabel() string {
	if m.tasks.filter == "" {
		return "All"
	}
	return string(m.tasks.filter)
}

// renderFooter renders the prompt, toast or status line under the content.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	line := func(content string) string {
		return styles.Footer.Width(m.width).Render(content)
	}

	switch {
	case m.tasks.searching:
		return line(m.tasks.searchInput.View())
	case m.logs.filtering:
		return line(m.logs.filterInput.View())
	case m.tasks.confirmDelete != "":
		return line(bg.Render(fmt.Sprintf("Delete %q?", truncate(m.tasks.confirmDelete, 40)), styles.WarningText.Bold(true)) +
			bg.Space() + bg.Render("y/n", styles.AccentText))
	case m.toast.active():
		style := styles.InfoText
		switch m.toast.kind {
		case toastSuccess:
			style = styles.SuccessText
		case toastError:
			style = styles.DangerText
		}
		return line(bg.Render(truncate(m.toast.text, max(m.width-4, 10)), style))
	case m.snapshot.IsOffline():
		return line(bg.Render("Backend unreachable, showing the last known tasks", styles.WarningText))
	}
	return line(bg.Render("? help  q quit", styles.FaintText))
}

// truncateMiddle truncates a string in the middle, preserving start and end.
func truncateMiddle(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 {
		return ""
	}
	if len(r) <= limit {
		return s
	}
	if limit <= 5 {
		return string(r[:limit])
	}
	// Keep more of the end (file name) than the start
	endLen := (limit - 3) * 2 / 3
	startLen := limit - 3 - endLen
	return string(r[:startLen]) + "..." + string(r[len(r)-endLen:])
}
