package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/taskdeck/internal/taskapi"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Health              taskapi.Health
	HasHealth           bool
	Tasks               []taskapi.Task
	HasTasks            bool
	Summary             *taskapi.Summary
	SummaryFetched      time.Time
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the backend reports itself unavailable or has
// been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	if s.HasHealth && !s.Health.Available() {
		return true
	}
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records one poll. The health result is always kept because
// CheckHealth never fails. When err is non-nil the previous task list is kept
// and the error is recorded for visibility.
func (s *Store) Update(health *taskapi.Health, tasks []taskapi.Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if health != nil {
		s.snapshot.Health = *health
		s.snapshot.HasHealth = true
	}
	s.snapshot.LastUpdated = time.Now()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Tasks = cloneTasks(tasks)
	s.snapshot.HasTasks = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// SetSummary stores the most recently fetched project summary.
func (s *Store) SetSummary(summary *taskapi.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if summary == nil {
		s.snapshot.Summary = nil
		return
	}
	dup := *summary
	s.snapshot.Summary = &dup
	s.snapshot.SummaryFetched = time.Now()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Tasks = cloneTasks(s.snapshot.Tasks)
	if s.snapshot.Summary != nil {
		dup := *s.snapshot.Summary
		snap.Summary = &dup
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneTasks(items []taskapi.Task) []taskapi.Task {
	if len(items) == 0 {
		return nil
	}
	dup := make([]taskapi.Task, len(items))
	copy(dup, items)
	return dup
}
