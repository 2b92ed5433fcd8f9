package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/five82/taskdeck/internal/taskapi"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml and yml in any case.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv", "":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json or yaml)", value)
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// CSVHeader is the column order of CSV exports.
var CSVHeader = []string{"task_name", "assigned_to", "client", "status", "start_date", "end_date", "priority"}

// Export writes tasks to w in the given format. Values are written as
// received from the backend.
func Export(w io.Writer, tasks []taskapi.Task, format Format) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, tasks)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if tasks == nil {
			tasks = []taskapi.Task{}
		}
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if tasks == nil {
			tasks = []taskapi.Task{}
		}
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func exportCSV(w io.Writer, tasks []taskapi.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range tasks {
		record := []string{t.Name, t.AssignedTo, t.Client, string(t.Status), t.StartDate, t.EndDate, string(t.Priority)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %q: %w", t.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
