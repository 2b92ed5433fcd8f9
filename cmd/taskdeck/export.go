package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/five82/taskdeck/internal/report"
)

func (c *cli) newExportCmd() *cobra.Command {
	var format, output, status string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as CSV, JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			filter, err := parseStatusFlag(status)
			if err != nil {
				return err
			}
			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			list, err := client.ListTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			tasks := report.FilterByStatus(list.Tasks, filter)

			if output == "" || output == "-" {
				return report.Export(cmd.OutOrStdout(), tasks, f)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create export: %w", err)
			}
			if err := report.Export(file, tasks, f); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d %s to %s\n", len(tasks), plural(len(tasks), "task", "tasks"), output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "csv", "csv, json or yaml")
	flags.StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	flags.StringVar(&status, "status", "", "only export tasks with this status")
	return cmd
}
