package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/taskdeck/internal/report"
	"github.com/five82/taskdeck/internal/taskapi"
)

var errNoClient = errors.New("backend client unavailable")

// filterCycle is the order the "f" key walks through. The empty status means
// no filter.
var filterCycle = append([]taskapi.Status{""}, taskapi.Statuses()...)

// tasksState holds the Tasks view state.
type tasksState struct {
	selected int
	filter   taskapi.Status

	// Search
	searching   bool
	searchInput textinput.Model
	query       string
	results     []taskapi.Task // nil when no search is applied

	// confirmDelete names the task awaiting a y/n answer.
	confirmDelete string
}

func newTasksState(filter string) tasksState {
	ti := textinput.New()
	ti.Placeholder = "Search tasks..."
	ti.CharLimit = 100
	ti.Prompt = "/"

	st := tasksState{searchInput: ti}
	if status, err := taskapi.ParseStatus(filter); err == nil {
		st.filter = status
	}
	return st
}

func (t *tasksState) clampSelection(n int) {
	t.selected = clamp(t.selected, 0, n-1)
}

// nextFilter returns the filter after current in filterCycle.
func nextFilter(current taskapi.Status) taskapi.Status {
	for i, s := range filterCycle {
		if s == current {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return ""
}

// visibleTasks returns the search results or the polled list, filtered by
// status and sorted for display.
func (m Model) visibleTasks() []taskapi.Task {
	source := m.snapshot.Tasks
	if m.tasks.results != nil {
		source = m.tasks.results
	}
	rows := append([]taskapi.Task(nil), report.FilterByStatus(source, m.tasks.filter)...)
	sortTasks(rows)
	return rows
}

// sortTasks orders open work first, then by status, priority and end date.
func sortTasks(rows []taskapi.Task) {
	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := rows[i].Status.Closed(), rows[j].Status.Closed()
		if ci != cj {
			return !ci
		}
		si, sj := statusRank(rows[i].Status), statusRank(rows[j].Status)
		if si != sj {
			return si < sj
		}
		pi, pj := rows[i].Priority.Rank(), rows[j].Priority.Rank()
		if pi != pj {
			return pi > pj
		}
		ei, ej := rows[i].ParsedEndDate(), rows[j].ParsedEndDate()
		if ei.IsZero() != ej.IsZero() {
			return !ei.IsZero()
		}
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
}

// statusRank returns the display rank for a status (lower comes first).
func statusRank(status taskapi.Status) int {
	switch parsed, _ := taskapi.ParseStatus(string(status)); parsed {
	case taskapi.StatusInProgress:
		return 0
	case taskapi.StatusOnHold:
		return 1
	case taskapi.StatusPending:
		return 2
	case taskapi.StatusCompleted:
		return 3
	case taskapi.StatusCancelled:
		return 4
	default:
		return 5
	}
}

func (m Model) selectedTask() *taskapi.Task {
	rows := m.visibleTasks()
	if m.tasks.selected < 0 || m.tasks.selected >= len(rows) {
		return nil
	}
	task := rows[m.tasks.selected]
	return &task
}

func (m Model) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.visibleTasks())
	half := max(m.contentHeight()/2, 1)

	switch {
	case key.Matches(msg, m.keys.Down):
		m.tasks.selected = clamp(m.tasks.selected+1, 0, count-1)
	case key.Matches(msg, m.keys.Up):
		m.tasks.selected = clamp(m.tasks.selected-1, 0, count-1)
	case key.Matches(msg, m.keys.Top):
		m.tasks.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.tasks.selected = max(count-1, 0)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.tasks.selected = clamp(m.tasks.selected+half, 0, count-1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.tasks.selected = clamp(m.tasks.selected-half, 0, count-1)

	case key.Matches(msg, m.keys.Refresh):
		m.toast = newToast(toastInfo, "Refreshing...", time.Now())
		return m, m.refreshNow()

	case key.Matches(msg, m.keys.CycleFilter):
		m.tasks.filter = nextFilter(m.tasks.filter)
		m.tasks.selected = 0
		m.savePrefs()

	case key.Matches(msg, m.keys.Search):
		m.tasks.searching = true
		m.tasks.searchInput.SetValue(m.tasks.query)
		m.tasks.searchInput.CursorEnd()
		cmd := m.tasks.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.NewTask):
		m.form = newTaskForm()
		cmd := m.form.focusField(0)
		return m, cmd

	case key.Matches(msg, m.keys.NextStatus):
		task := m.selectedTask()
		if task == nil {
			return m, nil
		}
		return m, m.updateStatusCmd(task.Name, task.Status.Next())

	case key.Matches(msg, m.keys.Delete):
		if task := m.selectedTask(); task != nil {
			m.tasks.confirmDelete = task.Name
		}

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	}
	return m, nil
}

// handleConfirmKey answers the delete prompt. Only y or enter deletes.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := m.tasks.confirmDelete
	m.tasks.confirmDelete = ""
	switch msg.String() {
	case "y", "Y", "enter":
		return m, m.deleteCmd(name)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := strings.TrimSpace(m.tasks.searchInput.Value())
		m.tasks.searching = false
		m.tasks.searchInput.Blur()
		if query == "" {
			m.clearSearch()
			return m, nil
		}
		m.tasks.query = query
		return m, m.searchCmd(query)

	case key.Matches(msg, m.keys.Escape):
		m.tasks.searching = false
		m.tasks.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.tasks.searchInput, cmd = m.tasks.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchResult(msg searchMsg) {
	if msg.query != m.tasks.query {
		return // superseded
	}
	if msg.err != nil {
		m.toast = newToast(toastError, "Search failed: "+describeError(msg.err), time.Now())
		return
	}
	m.tasks.results = msg.results
	if m.tasks.results == nil {
		m.tasks.results = []taskapi.Task{}
	}
	m.tasks.selected = 0
	m.toast = newToast(toastInfo, fmt.Sprintf("%s for %q", pluralize(len(msg.results), "match", "matches"), msg.query), time.Now())
}

func (m *Model) clearSearch() {
	m.tasks.query = ""
	m.tasks.results = nil
	m.tasks.selected = 0
	m.tasks.searchInput.SetValue("")
}

// Commands

type searchMsg struct {
	query   string
	results []taskapi.Task
	err     error
}

func (m Model) searchCmd(query string) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		if client == nil {
			return searchMsg{query: query, err: errNoClient}
		}
		res, err := client.SearchTasks(ctx, query)
		if err != nil {
			return searchMsg{query: query, err: err}
		}
		return searchMsg{query: query, results: res.Results}
	}
}

func (m Model) updateStatusCmd(name string, status taskapi.Status) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		if client == nil {
			return actionMsg{verb: "Update", err: errNoClient}
		}
		_, err := client.UpdateTask(ctx, name, taskapi.TaskUpdate{Name: name, NewStatus: status})
		if err != nil {
			return actionMsg{verb: "Update", err: err}
		}
		return actionMsg{
			verb:    "Update",
			text:    fmt.Sprintf("%s → %s", name, status),
			refresh: true,
		}
	}
}

func (m Model) deleteCmd(name string) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		if client == nil {
			return actionMsg{verb: "Delete", err: errNoClient}
		}
		if _, err := client.DeleteTask(ctx, name); err != nil {
			return actionMsg{verb: "Delete", err: err}
		}
		return actionMsg{verb: "Delete", text: "Deleted " + name, refresh: true}
	}
}

func (m Model) exportCmd() tea.Cmd {
	tasks, dir := m.visibleTasks(), m.exportDir
	return func() tea.Msg {
		path, err := writeExport(dir, tasks, time.Now())
		if err != nil {
			return actionMsg{verb: "Export", err: err}
		}
		return actionMsg{
			verb: "Export",
			text: fmt.Sprintf("Exported %s to %s", pluralize(len(tasks), "task", "tasks"), path),
		}
	}
}

// writeExport saves tasks as CSV in dir and returns the file path.
func writeExport(dir string, tasks []taskapi.Task, now time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("tasks-%s.%s", now.Format("20060102-150405"), report.FormatCSV.Extension())
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	if err := report.Export(file, tasks, report.FormatCSV); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	return path, nil
}

func pluralize(n int, singular, plural string) string {
	word := plural
	if n == 1 {
		word = singular
	}
	return humanize.Comma(int64(n)) + " " + word
}

// Rendering

// renderTasks renders the task table beside the detail pane.
func (m Model) renderTasks() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	rows := m.visibleTasks()

	if len(rows) == 0 {
		msg := "No tasks"
		switch {
		case !m.snapshot.HasTasks:
			msg = "Waiting for the backend..."
		case m.tasks.results != nil:
			msg = fmt.Sprintf("No tasks match %q", m.tasks.query)
		case m.tasks.filter != "":
			msg = fmt.Sprintf("No %s tasks", m.tasks.filter)
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	// Extra wide: 60% table, 40% detail. Default: 55/45. Compact: table only.
	tableWidth := m.width
	if m.width >= LayoutExtraWideWidth {
		tableWidth = m.width * 60 / 100
	} else if m.width >= LayoutCompactWidth {
		tableWidth = m.width * 55 / 100
	}

	table := m.renderBox(m.tasksTitle(len(rows)), m.renderTaskTable(rows, tableWidth-2, height-2), tableWidth, height, true)
	if tableWidth == m.width {
		return table
	}

	detailWidth := m.width - tableWidth
	var detail string
	if task := m.selectedTask(); task != nil {
		detail = m.renderTaskDetail(*task, detailWidth-2)
	}
	detailPane := m.renderBox("Details", detail, detailWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, table, detailPane)
}

func (m Model) tasksTitle(visible int) string {
	parts := []string{fmt.Sprintf("Tasks (%d)", visible)}
	if total := len(m.snapshot.Tasks); m.tasks.results == nil && total != visible {
		parts[0] = fmt.Sprintf("Tasks (%d/%d)", visible, total)
	}
	if m.tasks.filter != "" {
		parts = append(parts, strings.ToUpper(string(m.tasks.filter)))
	}
	if m.tasks.query != "" && m.tasks.results != nil {
		parts = append(parts, "/"+truncate(m.tasks.query, 18))
	}
	return strings.Join(parts, " • ")
}

// renderTaskTable renders one line per task, scrolled so the selection stays
// visible.
func (m Model) renderTaskTable(rows []taskapi.Task, width, height int) string {
	height = max(height, 1)
	offset := 0
	if m.tasks.selected >= height {
		offset = m.tasks.selected - height + 1
	}
	end := min(offset+height, len(rows))

	now := time.Now()
	lines := make([]string, 0, end-offset)
	for i := offset; i < end; i++ {
		selected := i == m.tasks.selected
		bgColor := m.theme.FocusBg
		if selected {
			bgColor = m.theme.SelectionBg
		}
		content := m.formatTaskRow(rows[i], width, bgColor, selected, now)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(bgColor)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatTaskRow formats "Name  Assignee  Status  Priority  Due".
func (m Model) formatTaskRow(task taskapi.Task, width int, bgColor string, selected bool, now time.Time) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	const (
		assigneeWidth = 14
		statusWidth   = 12
		priorityWidth = 7
		dueWidth      = 10
	)
	compact := width < 70
	fixed := statusWidth + dueWidth + 3
	if !compact {
		fixed += assigneeWidth + priorityWidth + 2
	}
	nameWidth := max(width-fixed-1, 8)

	textStyle, mutedStyle := styles.Text, styles.MutedText
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.StatusColor(string(task.Status))))
	dueStyle := styles.MutedText
	if task.Overdue(now) {
		dueStyle = styles.DangerText
	}
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		textStyle, mutedStyle, statusStyle = selText, selText, selText.Bold(true)
		if !task.Overdue(now) {
			dueStyle = selText
		}
	}

	parts := []string{bg.Render(padRight(task.Name, nameWidth), textStyle)}
	if !compact {
		parts = append(parts, bg.Render(padRight(orDash(task.AssignedTo), assigneeWidth), mutedStyle))
	}
	parts = append(parts, bg.Render(padRight(orDash(string(task.Status)), statusWidth), statusStyle))
	if !compact {
		parts = append(parts, bg.Render(padRight(orDash(string(task.Priority)), priorityWidth), mutedStyle))
	}
	parts = append(parts, bg.Render(padRight(orDash(task.EndDate), dueWidth), dueStyle))

	return bg.Join(parts, " ")
}

// renderTaskDetail lists every field of the selected task.
func (m Model) renderTaskDetail(task taskapi.Task, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)
	now := time.Now()

	row := func(label, value string, style lipgloss.Style) string {
		return bg.Render(padRight(label, 10), styles.MutedText) + bg.Render(truncate(value, max(width-11, 4)), style)
	}

	lines := []string{
		bg.Render(truncate(task.Name, width), styles.Text.Bold(true)),
		"",
		bg.Render(padRight("Status", 10), styles.MutedText) + styles.StatusStyle(string(task.Status)).Render(orDash(string(task.Status))),
		row("Assignee", orDash(task.AssignedTo), styles.Text),
		row("Client", orDash(task.Client), styles.Text),
		row("Priority", orDash(string(task.Priority)), styles.Text),
		row("Start", formatDate(task.StartDate, now), styles.Text),
		row("Due", formatDate(task.EndDate, now), ternaryStyle(task.Overdue(now), styles.DangerText, styles.Text)),
	}
	if task.Overdue(now) {
		lines = append(lines, "", bg.Render("OVERDUE", styles.DangerText))
	}
	lines = append(lines, "", bg.Render("s advance status • d delete", styles.FaintText))
	return strings.Join(lines, "\n")
}

// formatDate shows a YYYY-MM-DD date with a relative hint, or the raw value
// when it does not parse.
func formatDate(value string, now time.Time) string {
	parsed := taskapi.ParseDate(value)
	if parsed.IsZero() {
		return orDash(value)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	if day.Equal(today) {
		return value + " (today)"
	}
	return value + " (" + humanize.RelTime(day, today, "ago", "from now") + ")"
}

func ternaryStyle(cond bool, a, b lipgloss.Style) lipgloss.Style {
	if cond {
		return a
	}
	return b
}
