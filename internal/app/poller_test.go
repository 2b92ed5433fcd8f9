package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/taskdeck/internal/config"
	"github.com/five82/taskdeck/internal/state"
	"github.com/five82/taskdeck/internal/taskapi"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
		{"overflow guarded", 200, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestCalculateBackoff_BaseAboveCap(t *testing.T) {
	base := time.Minute
	if got := calculateBackoff(3, base); got != base {
		t.Fatalf("calculateBackoff(3, %v) = %v, want base", base, got)
	}
}

type fakeAPI struct {
	taskapi.API // unimplemented methods panic

	health   taskapi.Health
	tasks    []taskapi.Task
	listErr  error
	listHits atomic.Int32
}

func (f *fakeAPI) CheckHealth(context.Context) taskapi.Health {
	return f.health
}

func (f *fakeAPI) ListTasks(context.Context) (*taskapi.TaskList, error) {
	f.listHits.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &taskapi.TaskList{Tasks: f.tasks, Count: len(f.tasks)}, nil
}

func TestRefresh_StoresHealthAndTasks(t *testing.T) {
	api := &fakeAPI{
		health: taskapi.Health{Status: "healthy", Service: "tasks"},
		tasks:  []taskapi.Task{{Name: "Ship", Status: taskapi.StatusPending}},
	}
	store := &state.Store{}

	if err := refresh(context.Background(), store, api); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := store.Snapshot()
	if !snap.HasHealth || snap.Health.Service != "tasks" {
		t.Fatalf("health = %+v", snap.Health)
	}
	if !snap.HasTasks || len(snap.Tasks) != 1 || snap.Tasks[0].Name != "Ship" {
		t.Fatalf("tasks = %+v", snap.Tasks)
	}
	if snap.LastError != nil || snap.ConsecutiveFailures != 0 {
		t.Fatalf("unexpected failure state: %v / %d", snap.LastError, snap.ConsecutiveFailures)
	}
}

func TestRefresh_FailureKeepsPreviousTasks(t *testing.T) {
	api := &fakeAPI{
		health: taskapi.Health{Status: "healthy"},
		tasks:  []taskapi.Task{{Name: "Ship"}},
	}
	store := &state.Store{}
	if err := refresh(context.Background(), store, api); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	api.health = taskapi.Health{Status: taskapi.HealthUnavailable}
	api.listErr = &taskapi.NetworkError{Attempt: 3, Err: errors.New("connection refused")}
	if err := refresh(context.Background(), store, api); err == nil {
		t.Fatal("expected error")
	}

	snap := store.Snapshot()
	if len(snap.Tasks) != 1 {
		t.Fatalf("tasks dropped on failure: %+v", snap.Tasks)
	}
	var netErr *taskapi.NetworkError
	if !errors.As(snap.LastError, &netErr) {
		t.Fatalf("LastError = %v, want NetworkError", snap.LastError)
	}
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("failures = %d, want 1", snap.ConsecutiveFailures)
	}
	if !snap.IsOffline() {
		t.Fatal("unavailable health should read as offline")
	}
}

func TestRefresh_CancelledContextLeavesStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeAPI{listErr: context.Canceled}
	store := &state.Store{}

	if err := refresh(ctx, store, api); !errors.Is(err, context.Canceled) {
		t.Fatalf("refresh err = %v, want context.Canceled", err)
	}
	if snap := store.Snapshot(); snap.ConsecutiveFailures != 0 || snap.HasHealth {
		t.Fatalf("store touched after cancel: %+v", snap)
	}
}

func TestStartPoller_UpdatesStoreUntilCancelled(t *testing.T) {
	api := &fakeAPI{
		health: taskapi.Health{Status: "healthy"},
		tasks:  []taskapi.Task{{Name: "Ship"}},
	}
	store := &state.Store{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartPoller(ctx, store, api, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for api.listHits.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller ran %d times", api.listHits.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !store.Snapshot().HasTasks {
		t.Fatal("store never received tasks")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	hits := api.listHits.Load()
	time.Sleep(30 * time.Millisecond)
	if got := api.listHits.Load(); got != hits {
		t.Fatalf("poller kept running after cancel: %d -> %d", hits, got)
	}
}

func TestNewClient_UsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.APIURL = "http://tasks.internal:9000"
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 5

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if !strings.HasPrefix(client.BaseURL(), "http://tasks.internal:9000") {
		t.Fatalf("BaseURL = %s", client.BaseURL())
	}
	if p := client.Policy(); p.Timeout != 2*time.Second || p.MaxRetries != 5 {
		t.Fatalf("policy = %+v", p)
	}
}
