package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/taskdeck/internal/taskapi"
)

// Form fields, in tab order.
const (
	fieldName = iota
	fieldAssignee
	fieldClient
	fieldStatus
	fieldStart
	fieldEnd
	fieldPriority
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Name", "Assignee", "Client", "Status", "Start", "Due", "Priority",
}

// taskForm is the new-task modal.
type taskForm struct {
	active bool
	inputs []textinput.Model
	focus  int
	err    string
}

func newTaskForm() taskForm {
	placeholders := [fieldCount]string{
		"Task name (required)",
		"Assignee (required)",
		"Client",
		string(taskapi.StatusPending),
		"YYYY-MM-DD",
		"YYYY-MM-DD",
		string(taskapi.PriorityMedium),
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 120
		ti.Prompt = ""
		inputs[i] = ti
	}
	return taskForm{active: true, inputs: inputs}
}

// focusField moves focus to field i, wrapping at either end.
func (f *taskForm) focusField(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focus = (i%len(f.inputs) + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	return f.inputs[f.focus].Focus()
}

func (f taskForm) value(field int) string {
	return strings.TrimSpace(f.inputs[field].Value())
}

// task builds and validates the task described by the form. Blank status and
// priority fall back to Pending and Medium.
func (f taskForm) task() (taskapi.Task, error) {
	task := taskapi.Task{
		Name:       f.value(fieldName),
		AssignedTo: f.value(fieldAssignee),
		Client:     f.value(fieldClient),
		StartDate:  f.value(fieldStart),
		EndDate:    f.value(fieldEnd),
		Status:     taskapi.StatusPending,
		Priority:   taskapi.PriorityMedium,
	}
	if raw := f.value(fieldStatus); raw != "" {
		status, err := taskapi.ParseStatus(raw)
		if err != nil {
			return task, err
		}
		task.Status = status
	}
	if raw := f.value(fieldPriority); raw != "" {
		priority, err := taskapi.ParsePriority(raw)
		if err != nil {
			return task, err
		}
		task.Priority = priority
	}
	if err := task.Validate(); err != nil {
		return task, err
	}
	return task, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.form = taskForm{}
		return m, nil
	case key.Matches(msg, m.keys.Tab), msg.Type == tea.KeyDown:
		cmd := m.form.focusField(m.form.focus + 1)
		return m, cmd
	case key.Matches(msg, m.keys.ShiftTab), msg.Type == tea.KeyUp:
		cmd := m.form.focusField(m.form.focus - 1)
		return m, cmd
	case key.Matches(msg, m.keys.Confirm):
		if m.form.focus < len(m.form.inputs)-1 {
			cmd := m.form.focusField(m.form.focus + 1)
			return m, cmd
		}
		task, err := m.form.task()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.form = taskForm{}
		return m, m.createCmd(task)
	}

	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	m.form.err = ""
	return m, cmd
}

func (m Model) createCmd(task taskapi.Task) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		if client == nil {
			return actionMsg{verb: "Create", err: errNoClient}
		}
		if _, err := client.CreateTask(ctx, task); err != nil {
			return actionMsg{verb: "Create", err: err}
		}
		return actionMsg{verb: "Create", text: fmt.Sprintf("Created %q", task.Name), refresh: true}
	}
}

// renderForm renders the new-task modal centered over the screen.
func (m Model) renderForm() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("New Task"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	for i, input := range m.form.inputs {
		labelStyle := styles.MutedText
		if i == m.form.focus {
			labelStyle = styles.AccentText.Bold(true)
		}
		b.WriteString(labelStyle.Width(10).Render(fieldLabels[i]))
		b.WriteString(input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.form.err != "" {
		b.WriteString(styles.DangerText.Render(m.form.err))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render("tab next • enter save on last field • esc cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(56).
		Render(b.String())

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
