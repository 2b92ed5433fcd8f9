package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/taskdeck/internal/report"
	"github.com/five82/taskdeck/internal/taskapi"
)

func (c *cli) newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks",
	}
	cmd.AddCommand(
		c.newTasksListCmd(),
		c.newTasksSearchCmd(),
		c.newTasksCreateCmd(),
		c.newTasksUpdateCmd(),
		c.newTasksDeleteCmd(),
	)
	return cmd
}

func (c *cli) newTasksListCmd() *cobra.Command {
	var status, format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			return writeTasks(cmd.OutOrStdout(), report.FilterByStatus(list.Tasks, filter), format)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show tasks with this status")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv, json or yaml")
	return cmd
}

func (c *cli) newTasksSearchCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tasks by name or assignee",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			result, err := client.SearchTasks(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("search tasks: %w", err)
			}
			return writeTasks(cmd.OutOrStdout(), result.Results, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv, json or yaml")
	return cmd
}

func (c *cli) newTasksCreateCmd() *cobra.Command {
	var task taskapi.Task
	var status, priority string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task.Name = strings.Join(args, " ")
			task.Status = taskapi.StatusPending
			task.Priority = taskapi.PriorityMedium
			if status != "" {
				parsed, err := taskapi.ParseStatus(status)
				if err != nil {
					return err
				}
				task.Status = parsed
			}
			if priority != "" {
				parsed, err := taskapi.ParsePriority(priority)
				if err != nil {
					return err
				}
				task.Priority = parsed
			}
			if err := task.Validate(); err != nil {
				return err
			}

			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			msg, err := client.CreateTask(cmd.Context(), task)
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			printMessage(cmd.OutOrStdout(), msg, fmt.Sprintf("Created %q", task.Name))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&task.AssignedTo, "assignee", "a", "", "person the task is assigned to (required)")
	flags.StringVar(&task.Client, "client", "", "client the task is for")
	flags.StringVar(&task.StartDate, "start", "", "start date, YYYY-MM-DD")
	flags.StringVar(&task.EndDate, "due", "", "due date, YYYY-MM-DD")
	flags.StringVar(&status, "status", "", "initial status (default Pending)")
	flags.StringVar(&priority, "priority", "", "Low, Medium or High (default Medium)")
	return cmd
}

func (c *cli) newTasksUpdateCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change a task's status",
		Long: "Set the status of the named task. Without --status the task moves\n" +
			"to the next status in the Pending, In Progress, Completed, On Hold,\n" +
			"Cancelled cycle.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			client, err := c.client(cmd)
			if err != nil {
				return err
			}

			next, err := parseStatusFlag(status)
			if err != nil {
				return err
			}
			if next == "" {
				list, err := client.ListTasks(cmd.Context())
				if err != nil {
					return fmt.Errorf("list tasks: %w", err)
				}
				current, ok := findTask(list.Tasks, name)
				if !ok {
					return fmt.Errorf("task %q not found", name)
				}
				next = current.Status.Next()
			}

			msg, err := client.UpdateTask(cmd.Context(), name, taskapi.TaskUpdate{Name: name, NewStatus: next})
			if err != nil {
				return fmt.Errorf("update task: %w", err)
			}
			printMessage(cmd.OutOrStdout(), msg, fmt.Sprintf("%s → %s", name, next))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	return cmd
}

func (c *cli) newTasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client(cmd)
			if err != nil {
				return err
			}
			msg, err := client.DeleteTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete task: %w", err)
			}
			printMessage(cmd.OutOrStdout(), msg, fmt.Sprintf("Deleted %q", args[0]))
			return nil
		},
	}
}

func parseStatusFlag(value string) (taskapi.Status, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return taskapi.ParseStatus(value)
}

func findTask(tasks []taskapi.Task, name string) (taskapi.Task, bool) {
	for _, t := range tasks {
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name)) {
			return t, true
		}
	}
	return taskapi.Task{}, false
}

func printMessage(w io.Writer, msg *taskapi.Message, fallback string) {
	text := fallback
	if msg != nil && strings.TrimSpace(msg.Message) != "" {
		text = msg.Message
	}
	fmt.Fprintln(w, text)
}

// writeTasks prints tasks as an aligned table, or in one of the export
// formats.
func writeTasks(w io.Writer, tasks []taskapi.Task, format string) error {
	if strings.EqualFold(strings.TrimSpace(format), "table") || format == "" {
		return printTable(w, tasks)
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	return report.Export(w, tasks, f)
}

func printTable(w io.Writer, tasks []taskapi.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}

	rows := make([]taskapi.Task, len(tasks))
	copy(rows, tasks)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Priority.Rank() > rows[j].Priority.Rank()
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tASSIGNEE\tSTATUS\tPRIORITY\tDUE")
	for _, t := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.Name, dash(t.AssignedTo), dash(string(t.Status)), dash(string(t.Priority)), dash(t.EndDate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s %s\n", humanize.Comma(int64(len(rows))), plural(len(rows), "task", "tasks"))
	return err
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
