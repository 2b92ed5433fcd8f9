package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/taskdeck/internal/config"
	"github.com/five82/taskdeck/internal/prefs"
	"github.com/five82/taskdeck/internal/state"
	"github.com/five82/taskdeck/internal/taskapi"
	"github.com/five82/taskdeck/internal/ui"
)

// Options configure the taskdeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/taskdeck/prefs.toml
	PollEvery  time.Duration // zero uses the configured interval
	ExportDir  string        // empty uses the working directory
	Verbose    bool          // log request attempts
}

// Run boots the taskdeck TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	// The TUI owns the terminal, so log output goes to a file.
	logPath := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := tea.LogToFile(logPath, "taskdeck")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	var logger *log.Logger
	if opts.Verbose {
		logger = log.Default()
	}
	client, err := NewClient(cfg, logger)
	if err != nil {
		return err
	}

	store := &state.Store{}

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}

	StartPoller(ctx, store, client, interval)

	return ui.Run(ui.Options{
		Context: ctx,
		Client:  client,
		Store:   store,
		Refresh: func(ctx context.Context) error {
			return refresh(ctx, store, client)
		},
		LogPath:   logPath,
		ExportDir: opts.ExportDir,
		PollTick:  interval,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		Filter:    userPrefs.StatusFilter,
	})
}

// NewClient builds a backend client from cfg. A nil logger keeps the client
// quiet.
func NewClient(cfg config.Config, logger *log.Logger) (*taskapi.Client, error) {
	opts := []taskapi.Option{
		taskapi.WithPolicy(cfg.Policy()),
		taskapi.WithEndpoints(cfg.Endpoints),
	}
	if logger != nil {
		opts = append(opts, taskapi.WithLogger(logger))
	}
	client, err := taskapi.NewClient(cfg.APIURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("init client: %w", err)
	}
	return client, nil
}
