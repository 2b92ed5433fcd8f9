package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/taskdeck/internal/report"
	"github.com/five82/taskdeck/internal/state"
	"github.com/five82/taskdeck/internal/taskapi"
)

// summaryState holds the Summary view state. The summary itself lives in the
// store snapshot so the CLI poller and the view share it.
type summaryState struct {
	viewport viewport.Model
	loading  bool
	err      error
}

// needsFetch reports whether the cached AI summary is missing or stale.
func (s summaryState) needsFetch(snap state.Snapshot) bool {
	if s.loading {
		return false
	}
	return snap.Summary == nil || time.Since(snap.SummaryFetched) > SummaryMaxAge
}

func (m *Model) resizeSummary() {
	m.summary.viewport.Width = max(m.width-4, 10)
	m.summary.viewport.Height = max(m.contentHeight()-2, 1)
	m.updateSummaryViewport()
}

func (m *Model) updateSummaryViewport() {
	m.summary.viewport.SetContent(m.renderSummaryContent(m.summary.viewport.Width))
}

// fetchSummary asks the backend for a new project summary.
func (m *Model) fetchSummary() tea.Cmd {
	if m.client == nil {
		return nil
	}
	m.summary.loading = true
	m.summary.err = nil
	m.updateSummaryViewport()

	client, ctx, store := m.client, m.ctx, m.store
	return func() tea.Msg {
		summary, err := client.GetProjectSummary(ctx)
		if err != nil {
			return summaryMsg{err: err}
		}
		if store != nil {
			store.SetSummary(summary)
		}
		return summaryMsg{summary: summary}
	}
}

type summaryMsg struct {
	summary *taskapi.Summary
	err     error
}

func (m *Model) handleSummary(msg summaryMsg) {
	m.summary.loading = false
	m.summary.err = msg.err
	if msg.err == nil && msg.summary != nil {
		dup := *msg.summary
		m.snapshot.Summary = &dup
		m.snapshot.SummaryFetched = time.Now()
	}
	m.updateSummaryViewport()
}

func (m Model) handleSummaryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.summary.loading {
			return m, nil
		}
		cmd := m.fetchSummary()
		return m, cmd
	case key.Matches(msg, m.keys.Down):
		m.summary.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.summary.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.summary.viewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.summary.viewport.HalfPageUp()
	case key.Matches(msg, m.keys.Top):
		m.summary.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.summary.viewport.GotoBottom()
	}
	return m, nil
}

// renderSummaryContent renders the local statistics followed by the
// backend's AI summary.
func (m Model) renderSummaryContent(width int) string {
	styles := m.theme.Styles()
	stats := report.Summarize(m.snapshot.Tasks, time.Now())
	chartWidth := max(min(width-30, 50), 10)

	heading := func(text string) string {
		return styles.AccentText.Bold(true).Render(text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s  %s\n\n",
		styles.Text.Bold(true).Render(pluralize(stats.Total, "task", "tasks")),
		styles.SuccessText.Render(fmt.Sprintf("%d completed (%.0f%%)", stats.Completed, stats.CompletionRate()*100)),
		styles.InfoText.Render(fmt.Sprintf("%d in progress", stats.StatusCount(taskapi.StatusInProgress))),
		ternaryStyle(stats.Overdue > 0, styles.DangerText, styles.MutedText).Render(fmt.Sprintf("%d overdue", stats.Overdue)),
	)

	if stats.Total > 0 {
		b.WriteString(heading("By status"))
		b.WriteString("\n")
		b.WriteString(report.BarChart(stats.ByStatus, chartWidth, func(label string) lipgloss.Color {
			return lipgloss.Color(styles.StatusColor(label))
		}))
		b.WriteString("\n\n")

		b.WriteString(heading("By assignee"))
		b.WriteString("\n")
		b.WriteString(report.BarChart(stats.ByAssignee, chartWidth, func(string) lipgloss.Color {
			return lipgloss.Color(m.theme.Accent)
		}))
		b.WriteString("\n\n")

		b.WriteString(heading("By priority"))
		b.WriteString("\n")
		b.WriteString(report.BarChart(stats.ByPriority, chartWidth, m.priorityColor))
		b.WriteString("\n\n")
	}

	b.WriteString(heading("AI summary"))
	summary := m.snapshot.Summary
	if summary != nil {
		if ts := summary.ParsedTimestamp(); !ts.IsZero() {
			b.WriteString(styles.FaintText.Render("  generated " + humanize.Time(ts)))
		}
	}
	b.WriteString("\n")

	switch {
	case m.summary.loading:
		b.WriteString(styles.MutedText.Render("Generating summary..."))
	case m.summary.err != nil:
		b.WriteString(styles.DangerText.Render("Summary failed: " + describeError(m.summary.err)))
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("Press r to retry."))
	case summary == nil || strings.TrimSpace(summary.Summary) == "":
		b.WriteString(styles.MutedText.Render("No summary yet. Press r to generate one."))
	default:
		b.WriteString(renderMarkdown(summary.Summary, width))
	}
	return b.String()
}

func (m Model) priorityColor(label string) lipgloss.Color {
	switch taskapi.Priority(label) {
	case taskapi.PriorityHigh:
		return lipgloss.Color(m.theme.Danger)
	case taskapi.PriorityMedium:
		return lipgloss.Color(m.theme.Warning)
	case taskapi.PriorityLow:
		return lipgloss.Color(m.theme.Success)
	default:
		return lipgloss.Color(m.theme.Muted)
	}
}

func (m Model) renderSummary() string {
	title := "Summary"
	if m.summary.loading {
		title = "Summary • generating"
	}
	return m.renderBox(title, m.summary.viewport.View(), m.width, m.contentHeight(), true)
}
