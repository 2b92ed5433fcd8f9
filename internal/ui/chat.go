package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/taskdeck/internal/taskapi"
)

// Chat roles as the backend expects them in conversation history.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleError     = "error"
)

type chatEntry struct {
	role    string
	content string
}

// chatState holds the Chat view state.
type chatState struct {
	input    textinput.Model
	viewport viewport.Model
	entries  []chatEntry
	pending  bool
}

func newChatState() chatState {
	ti := textinput.New()
	ti.Placeholder = "Ask about your tasks..."
	ti.CharLimit = 2000
	ti.Prompt = "> "

	return chatState{
		input:    ti,
		viewport: viewport.New(0, 0),
	}
}

// turns returns the conversation so far. Errors are local and never sent.
func (c chatState) turns() []taskapi.ChatTurn {
	var out []taskapi.ChatTurn
	for _, e := range c.entries {
		if e.role == roleError {
			continue
		}
		out = append(out, taskapi.ChatTurn{Role: e.role, Content: e.content})
	}
	return out
}

func (m *Model) resizeChat() {
	// Box borders and the input line below the box.
	m.chat.viewport.Width = max(m.width-4, 10)
	m.chat.viewport.Height = max(m.contentHeight()-3, 1)
	m.chat.input.Width = max(m.width-6, 10)
	m.updateChatViewport()
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewTasks)
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.offsetView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.offsetView(-1))
	case key.Matches(msg, m.keys.ClearChat):
		if !m.chat.pending {
			m.chat.entries = nil
			m.updateChatViewport()
		}
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		return m.sendChat(false)
	case key.Matches(msg, m.keys.Ask):
		return m.sendChat(true)
	}

	switch msg.Type {
	case tea.KeyUp:
		m.chat.viewport.ScrollUp(1)
		return m, nil
	case tea.KeyDown:
		m.chat.viewport.ScrollDown(1)
		return m, nil
	case tea.KeyPgUp:
		m.chat.viewport.HalfPageUp()
		return m, nil
	case tea.KeyPgDown:
		m.chat.viewport.HalfPageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return m, cmd
}

// sendChat submits the input line. oneShot uses the ask endpoint, which
// ignores history.
func (m Model) sendChat(oneShot bool) (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.chat.input.Value())
	if text == "" || m.chat.pending {
		return m, nil
	}

	history := m.chat.turns()
	m.chat.entries = append(m.chat.entries, chatEntry{role: roleUser, content: text})
	m.chat.pending = true
	m.chat.input.SetValue("")
	m.updateChatViewport()

	client, ctx := m.client, m.ctx
	return m, func() tea.Msg {
		if client == nil {
			return chatReplyMsg{err: errNoClient}
		}
		var (
			reply *taskapi.ChatReply
			err   error
		)
		if oneShot {
			reply, err = client.Ask(ctx, text)
		} else {
			reply, err = client.SendChatMessage(ctx, text, history...)
		}
		if err != nil {
			return chatReplyMsg{err: err}
		}
		return chatReplyMsg{text: reply.Text()}
	}
}

type chatReplyMsg struct {
	text string
	err  error
}

func (m *Model) handleChatReply(msg chatReplyMsg) {
	m.chat.pending = false
	switch {
	case msg.err != nil:
		m.chat.entries = append(m.chat.entries, chatEntry{role: roleError, content: describeError(msg.err)})
	case strings.TrimSpace(msg.text) == "":
		m.chat.entries = append(m.chat.entries, chatEntry{role: roleAssistant, content: "_(empty reply)_"})
	default:
		m.chat.entries = append(m.chat.entries, chatEntry{role: roleAssistant, content: msg.text})
	}
	m.updateChatViewport()
}

func (m *Model) updateChatViewport() {
	m.chat.viewport.SetContent(m.renderChatContent(m.chat.viewport.Width))
	m.chat.viewport.GotoBottom()
}

func (m Model) renderChatContent(width int) string {
	styles := m.theme.Styles()
	if len(m.chat.entries) == 0 && !m.chat.pending {
		return styles.MutedText.Render("Ask a question about your tasks. enter sends with history, ctrl+o asks without it.")
	}

	var blocks []string
	for _, e := range m.chat.entries {
		switch e.role {
		case roleUser:
			blocks = append(blocks,
				styles.AccentText.Bold(true).Render("You")+"\n"+
					lipgloss.NewStyle().Width(max(width, 10)).Render(e.content))
		case roleAssistant:
			blocks = append(blocks,
				styles.SuccessText.Render("Assistant")+"\n"+renderMarkdown(e.content, width))
		default:
			blocks = append(blocks, styles.DangerText.Render("Error: "+e.content))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// renderChat renders the conversation box above the input line.
func (m Model) renderChat() string {
	height := m.contentHeight()
	title := "Chat"
	if n := len(m.chat.turns()); n > 0 {
		title = "Chat • " + pluralize(n, "message", "messages")
	}
	box := m.renderBox(title, m.chat.viewport.View(), m.width, height-1, true)
	if m.chat.pending {
		return box + "\n" + m.spinner.View() + m.theme.Styles().MutedText.Render(" Waiting for reply...")
	}
	return box + "\n" + m.chat.input.View()
}
