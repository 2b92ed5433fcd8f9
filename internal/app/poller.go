package app

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/taskdeck/internal/state"
	"github.com/five82/taskdeck/internal/taskapi"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// StartPoller launches a background goroutine that refreshes the store until
// ctx is cancelled. Consecutive failures stretch the wait between polls. It
// returns immediately.
func StartPoller(ctx context.Context, store *state.Store, client taskapi.API, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			_ = refresh(ctx, store, client)
			timer.Reset(calculateBackoff(store.Snapshot().ConsecutiveFailures, interval))
		}
	}()
}

// refresh probes health and lists tasks concurrently, then records both in
// the store. A task list failure does not cancel the health probe.
func refresh(ctx context.Context, store *state.Store, client taskapi.API) error {
	var (
		g      errgroup.Group
		health taskapi.Health
		list   *taskapi.TaskList
	)
	g.Go(func() error {
		health = client.CheckHealth(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = client.ListTasks(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		store.Update(&health, nil, err)
		log.Printf("task poll failed: %v", err)
		return err
	}

	var tasks []taskapi.Task
	if list != nil {
		tasks = list.Tasks
	}
	store.Update(&health, tasks, nil)
	return nil
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff (or base itself when base is already larger).
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base <= 0 {
		return base
	}
	ceiling := max(maxBackoff, base)
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return d
}
