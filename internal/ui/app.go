package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/taskdeck/internal/prefs"
	"github.com/five82/taskdeck/internal/state"
	"github.com/five82/taskdeck/internal/taskapi"
)

// View represents the current active view.
type View int

const (
	ViewTasks View = iota
	ViewChat
	ViewSummary
	ViewLogs
)

var viewOrder = []View{ViewTasks, ViewChat, ViewSummary, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewChat:
		return "Chat"
	case ViewSummary:
		return "Summary"
	case ViewLogs:
		return "Logs"
	default:
		return "Tasks"
	}
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Client  taskapi.API
	Store   *state.Store
	// Refresh polls the backend once and updates Store.
	Refresh   func(ctx context.Context) error
	LogPath   string
	ExportDir string
	PollTick  time.Duration
	ThemeName string
	PrefsPath string
	Filter    string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	client    taskapi.API
	store     *state.Store
	refresh   func(ctx context.Context) error
	logPath   string
	exportDir string
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	spinner     spinner.Model
	toast       toast

	// Data state
	snapshot state.Snapshot

	tasks   tasksState
	form    taskForm
	chat    chatState
	summary summaryState
	logs    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		client:      opts.Client,
		store:       opts.Store,
		refresh:     opts.Refresh,
		logPath:     opts.LogPath,
		exportDir:   opts.ExportDir,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewTasks,
		spinner:     sp,
		tasks:       newTasksState(opts.Filter),
		chat:        newChatState(),
		logs:        newLogState(),
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	// The first poll runs in the background so the frame draws immediately.
	if m.refresh != nil {
		cmds = append(cmds, m.refreshNow())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeChat()
		m.resizeSummary()
		m.resizeLogs()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.tasks.clampSelection(len(m.visibleTasks()))
		if m.currentView == ViewSummary {
			m.updateSummaryViewport()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		if msg.err != nil {
			m.toast = newToast(toastError, "Refresh failed: "+describeError(msg.err), time.Now())
		}
		return m, fetchSnapshotCmd(m.store)

	case actionMsg:
		return m.handleAction(msg)

	case searchMsg:
		m.handleSearchResult(msg)
		return m, nil

	case chatReplyMsg:
		m.handleChatReply(msg)
		return m, nil

	case summaryMsg:
		m.handleSummary(msg)
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.form.active {
		return m.renderForm()
	}
	return m.renderMain()
}

// handleKey routes keyboard input. Text inputs get first refusal so typing
// "q" in the chat box does not quit.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.form.active {
		return m.handleFormKey(msg)
	}
	if m.tasks.confirmDelete != "" {
		return m.handleConfirmKey(msg)
	}
	if m.tasks.searching {
		return m.handleSearchKey(msg)
	}
	if m.logs.filtering {
		return m.handleLogFilterKey(msg)
	}
	if m.currentView == ViewChat {
		return m.handleChatKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.offsetView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.offsetView(-1))
	case key.Matches(msg, m.keys.ViewTasks):
		return m.switchView(ViewTasks)
	case key.Matches(msg, m.keys.ViewChat):
		return m.switchView(ViewChat)
	case key.Matches(msg, m.keys.ViewSummary):
		return m.switchView(ViewSummary)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	case key.Matches(msg, m.keys.Escape):
		if m.currentView == ViewTasks && m.tasks.results != nil {
			m.clearSearch()
			return m, nil
		}
		return m.switchView(ViewTasks)
	}

	switch m.currentView {
	case ViewTasks:
		return m.handleTasksKey(msg)
	case ViewSummary:
		return m.handleSummaryKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// offsetView returns the view delta steps away in tab order.
func (m Model) offsetView(delta int) View {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
		}
	}
	n := len(viewOrder)
	return viewOrder[((idx+delta)%n+n)%n]
}

// switchView activates v and kicks off whatever data it needs.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	if v != ViewChat {
		m.chat.input.Blur()
	}
	var cmd tea.Cmd
	switch v {
	case ViewChat:
		cmd = m.chat.input.Focus()
	case ViewSummary:
		m.updateSummaryViewport()
		if m.summary.needsFetch(m.snapshot) {
			cmd = m.fetchSummary()
		}
	case ViewLogs:
		cmd = m.refreshLogs()
	}
	return m, cmd
}

// handleTick processes the polling tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logs.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if m.toast.expired(now) {
		m.toast = toast{}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// handleAction reports the outcome of a create, update, delete or export.
func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	if msg.err != nil {
		m.toast = newToast(toastError, msg.verb+" failed: "+describeError(msg.err), now)
		return m, nil
	}
	m.toast = newToast(toastSuccess, msg.text, now)
	if msg.refresh {
		return m, m.refreshNow()
	}
	return m, nil
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:        m.theme.Name,
		StatusFilter: string(m.tasks.filter),
	})
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	if footer := m.renderFooter(); footer != "" {
		b.WriteString("\n")
		b.WriteString(footer)
	}

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewTasks:
		return m.renderTasks()
	case ViewChat:
		return m.renderChat()
	case ViewSummary:
		return m.renderSummary()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// contentHeight is the number of rows left for the active view.
func (m Model) contentHeight() int {
	// header, command bar, footer
	return max(m.height-3, 3)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type refreshedMsg struct{ err error }

type actionMsg struct {
	verb    string
	text    string
	err     error
	refresh bool
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// refreshNow polls once outside the regular cadence, typically after a
// mutation so the table reflects it.
func (m Model) refreshNow() tea.Cmd {
	if m.refresh == nil {
		return fetchSnapshotCmd(m.store)
	}
	ctx, refresh := m.ctx, m.refresh
	return func() tea.Msg {
		return refreshedMsg{err: refresh(ctx)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
