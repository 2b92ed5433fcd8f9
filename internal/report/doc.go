// Package report turns a task list into counts, charts and export files.
//
// Summarize groups tasks by status, assignee and priority and counts the
// overdue ones. BarChart renders any []Count as horizontal bars, coloured per
// status with StatusColor. Export writes tasks as CSV, JSON or YAML with the
// backend's field names.
package report
