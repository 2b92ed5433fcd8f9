// Package app is the composition root for the taskdeck dashboard.
//
// # Overview
//
// Run wires configuration, preferences, the backend client, the shared
// state.Store, the background poller and the UI, then blocks until the user
// quits or the context is cancelled.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()      TOML + env + .env
//	       ├─────> prefs.Load()       theme, last status filter
//	       ├─────> tea.LogToFile()    log output away from the terminal
//	       ├─────> NewClient()        taskapi.Client with retry policy
//	       ├─────> StartPoller()      background refresh
//	       └─────> ui.Run()           TUI (blocks)
//
//	Poller tick:
//	┌─────────────────────────────────────────┐
//	│ refresh()                               │
//	│  ├─> CheckHealth()  ┐ concurrent        │
//	│  ├─> ListTasks()    ┘ (errgroup)        │
//	│  └─> store.Update()                     │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// The poller waits one interval (config poll_seconds, default 5s) between
// refreshes. Each consecutive failure doubles the wait, capped at 30 seconds.
// A successful poll resets it. Poll errors are logged and kept in the store;
// they never stop the loop.
//
// Only configuration and log file errors are fatal to Run. An unreachable
// backend still starts the UI, which shows it as offline.
package app
