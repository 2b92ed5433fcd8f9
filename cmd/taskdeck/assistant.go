package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/five82/taskdeck/internal/report"
	"github.com/five82/taskdeck/internal/taskapi"
)

func (c *cli) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			health := client.CheckHealth(cmd.Context())
			if !health.Available() {
				if health.Err != nil {
					return fmt.Errorf("backend unavailable at %s: %w", client.BaseURL(), health.Err)
				}
				return fmt.Errorf("backend unavailable at %s", client.BaseURL())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", health.Status, client.BaseURL())
			if health.Service != "" {
				fmt.Fprintf(out, "service: %s\n", health.Service)
			}
			if health.Timestamp != "" {
				fmt.Fprintf(out, "time:    %s\n", health.Timestamp)
			}
			return nil
		},
	}
}

func (c *cli) newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to the project assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			reply, err := client.SendChatMessage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func (c *cli) newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a one-off question without chat history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			reply, err := client.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func printReply(w io.Writer, reply *taskapi.ChatReply) {
	text := ""
	if reply != nil {
		text = strings.TrimSpace(reply.Text())
	}
	if text == "" {
		text = "(empty reply)"
	}
	fmt.Fprintln(w, text)
}

func (c *cli) newSummaryCmd() *cobra.Command {
	var statsOnly bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the AI project summary and task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client(cmd)
			if err != nil {
				return err
			}

			var (
				summary *taskapi.Summary
				list    *taskapi.TaskList
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				list, err = client.ListTasks(ctx)
				if err != nil {
					return fmt.Errorf("list tasks: %w", err)
				}
				return nil
			})
			if !statsOnly {
				g.Go(func() error {
					var err error
					summary, err = client.GetProjectSummary(ctx)
					if err != nil {
						return fmt.Errorf("summary: %w", err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary != nil {
				printSummary(out, summary, time.Now())
				fmt.Fprintln(out)
			}
			printStats(out, report.Summarize(list.Tasks, time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&statsOnly, "stats-only", false, "skip the AI summary")
	return cmd
}

func printSummary(w io.Writer, s *taskapi.Summary, now time.Time) {
	header := "AI summary"
	if ts := s.ParsedTimestamp(); !ts.IsZero() {
		header += " (" + humanize.RelTime(ts, now, "ago", "from now") + ")"
	}
	fmt.Fprintln(w, header)
	text := strings.TrimSpace(s.Summary)
	if text == "" {
		text = "(no summary)"
	}
	fmt.Fprintln(w, text)
}

func printStats(w io.Writer, stats report.Stats) {
	fmt.Fprintf(w, "%s %s, %d completed (%.0f%%), %d overdue\n",
		humanize.Comma(int64(stats.Total)), plural(stats.Total, "task", "tasks"),
		stats.Completed, stats.CompletionRate()*100, stats.Overdue)
	if stats.Total == 0 {
		return
	}
	sections := []struct {
		title  string
		counts []report.Count
	}{
		{"By status", stats.ByStatus},
		{"By assignee", stats.ByAssignee},
		{"By priority", stats.ByPriority},
	}
	for _, s := range sections {
		chart := report.BarChart(nonZero(s.counts), 30, nil)
		if chart == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s\n%s\n", s.title, chart)
	}
}

func nonZero(counts []report.Count) []report.Count {
	var out []report.Count
	for _, c := range counts {
		if c.Value > 0 {
			out = append(out, c)
		}
	}
	return out
}
