package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/taskdeck/internal/logtail"
)

// logState holds the Logs view state.
type logState struct {
	viewport viewport.Model
	lines    []string
	follow   bool
	err      error

	filter      string
	filtering   bool
	filterInput textinput.Model
}

func newLogState() logState {
	ti := textinput.New()
	ti.Placeholder = "Filter logs..."
	ti.CharLimit = 100
	ti.Prompt = "/"

	return logState{
		viewport:    viewport.New(0, 0),
		follow:      true,
		filterInput: ti,
	}
}

func (m *Model) resizeLogs() {
	m.logs.viewport.Width = max(m.width-4, 10)
	m.logs.viewport.Height = max(m.contentHeight()-2, 1)
	m.updateLogViewport()
}

// refreshLogs re-reads the tail of the log file.
func (m *Model) refreshLogs() tea.Cmd {
	path, filter := m.logPath, m.logs.filter
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.ReadFiltered(path, LogTailLines, filter)
		return logsMsg{lines: lines, filter: filter, err: err}
	}
}

type logsMsg struct {
	lines  []string
	filter string
	err    error
}

func (m *Model) handleLogs(msg logsMsg) {
	if msg.filter != m.logs.filter {
		return // filter changed while reading
	}
	m.logs.err = msg.err
	if msg.err == nil {
		m.logs.lines = msg.lines
	}
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	m.logs.viewport.SetContent(m.renderLogContent())
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if strings.TrimSpace(m.logPath) == "" {
		return styles.MutedText.Render("Logging to stderr; no log file to show.")
	}
	if m.logs.err != nil {
		return styles.DangerText.Render("Read failed: " + m.logs.err.Error())
	}
	if len(m.logs.lines) == 0 {
		if m.logs.filter != "" {
			return styles.MutedText.Render("No lines match " + m.logs.filter)
		}
		return styles.MutedText.Render("Log is empty")
	}

	out := make([]string, len(m.logs.lines))
	for i, line := range m.logs.lines {
		out[i] = m.severityStyle(logtail.Classify(line)).Render(line)
	}
	return strings.Join(out, "\n")
}

func (m Model) severityStyle(sev logtail.Severity) lipgloss.Style {
	styles := m.theme.Styles()
	switch sev {
	case logtail.SeverityError:
		return styles.DangerText
	case logtail.SeverityWarn:
		return styles.WarningText
	default:
		return styles.Text
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.logs.filtering = true
		m.logs.filterInput.SetValue(m.logs.filter)
		m.logs.filterInput.CursorEnd()
		cmd := m.logs.filterInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refreshLogs()
		return m, cmd

	case key.Matches(msg, m.keys.Top):
		m.logs.viewport.GotoTop()
		m.logs.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logs.viewport.GotoBottom()
		m.logs.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logs.viewport.ScrollDown(1)
		m.logs.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logs.viewport.ScrollUp(1)
		m.logs.follow = false
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logs.viewport.HalfPageDown()
		m.logs.follow = false
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logs.viewport.HalfPageUp()
		m.logs.follow = false
	}
	return m, nil
}

// handleLogFilterKey handles input while the filter prompt is open.
func (m Model) handleLogFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.logs.filter = strings.ToLower(strings.TrimSpace(m.logs.filterInput.Value()))
		m.logs.filtering = false
		m.logs.filterInput.Blur()
		cmd := m.refreshLogs()
		return m, cmd

	case key.Matches(msg, m.keys.Escape):
		m.logs.filtering = false
		m.logs.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.logs.filterInput, cmd = m.logs.filterInput.Update(msg)
	return m, cmd
}

func (m Model) renderLogs() string {
	title := "Logs"
	if m.logPath != "" {
		title += " • " + m.logPath
	}
	if m.logs.filter != "" {
		title += " • /" + truncate(m.logs.filter, 18)
	}
	if !m.logs.follow {
		title += " • paused"
	}
	return m.renderBox(title, m.logs.viewport.View(), m.width, m.contentHeight(), true)
}
