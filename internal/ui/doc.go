// Package ui provides the taskdeck terminal dashboard.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea program. Model is the root state; each view
// keeps its own state struct (tasksState, chatState, summaryState, logState)
// and its own key handler and renderer. Backend calls run as tea.Cmd
// functions against a taskapi.API so the update loop never blocks.
//
// # Views
//
//   - Tasks: table of tasks with a detail pane, status filter, server-side
//     search, status advance, delete with confirmation, new-task form and CSV
//     export
//   - Chat: conversation with the backend's assistant; enter sends with
//     history, ctrl+o asks a one-off question
//   - Summary: local statistics as bar charts plus the backend's AI summary
//     rendered as markdown
//   - Logs: tail of taskdeck's own log file, coloured by severity
//
// # Data Flow
//
// A poller outside this package writes health and tasks into a state.Store.
// The model re-reads the store on every tick and after each mutation.
// Mutations report back through actionMsg and trigger an immediate refresh.
//
// # Key Bindings
//
// Keys are declared once in keyMap and matched with key.Matches. The help
// overlay is generated from keyMap.FullHelp. Text inputs (chat, search,
// filters and the form) take keys before global bindings.
//
// # Theming
//
// Themes are plain colour palettes. Status colours are keyed by
// taskapi.Status; BgStyle keeps backgrounds continuous across styled
// segments. The selected theme and status filter persist through prefs.
package ui
