package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/taskdeck/internal/app"
	"github.com/five82/taskdeck/internal/config"
	"github.com/five82/taskdeck/internal/taskapi"
)

// cli carries the persistent flags shared by every command.
type cli struct {
	configPath string
	prefsPath  string
	exportDir  string
	poll       time.Duration
	verbose    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "taskdeck",
		Short: "Terminal dashboard for the task backend",
		Long: "taskdeck shows tasks, chat, summary and logs from the task backend.\n" +
			"Run without a subcommand to open the dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: c.configPath,
				PrefsPath:  c.prefsPath,
				PollEvery:  c.poll,
				ExportDir:  c.exportDir,
				Verbose:    c.verbose,
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.config/taskdeck/config.toml)")
	flags.DurationVar(&c.poll, "poll", 0, "refresh interval, e.g. 10s (default from config)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log request attempts to stderr")
	root.Flags().StringVar(&c.prefsPath, "prefs", "", "preferences file (default ~/.config/taskdeck/prefs.toml)")
	root.Flags().StringVar(&c.exportDir, "export-dir", "", "directory for dashboard CSV exports (default current dir)")

	root.AddCommand(
		c.newHealthCmd(),
		c.newTasksCmd(),
		c.newChatCmd(),
		c.newAskCmd(),
		c.newSummaryCmd(),
		c.newExportCmd(),
	)
	return root
}

// client builds a backend client from the config file and environment.
func (c *cli) client(cmd *cobra.Command) (*taskapi.Client, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var logger *log.Logger
	if c.verbose {
		logger = log.New(cmd.ErrOrStderr(), "taskdeck: ", log.LstdFlags)
	}
	return app.NewClient(cfg, logger)
}
