// Package state provides thread-safe state management for taskdeck.
//
// # Overview
//
// This package holds the latest health probe, task list and project summary
// so the background poller and the UI never share mutable data. The poller
// writes, the UI reads snapshots on its own schedule.
//
// # Architecture
//
//	Producer (Poller):             Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ CheckHealth()  │            │                 │
//	│ ListTasks()    │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	│      ↓         │  (mutex)   │      ↓          │
//	│  repeat...     │            │  render UI      │
//	└────────────────┘            └─────────────────┘
//
// # Update Semantics
//
//	// Success: replace tasks, clear the error, reset the failure count
//	store.Update(&health, tasks, nil)
//
//	// Failure: keep the previous tasks, record the error, count it
//	store.Update(&health, nil, err)
//
// The health probe is stored in both cases. Summary data is fetched on demand
// and stored separately with SetSummary.
//
// # Offline Detection
//
// Snapshot.IsOffline reports true when the latest health probe said
// "unavailable" or when two or more polls in a row have failed.
//
// # Copying
//
// Snapshot returns copies of the task slice, the summary and the error, so
// callers may mutate what they receive. The zero Store is ready to use.
package state
