package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/taskdeck/internal/taskapi"
)

var statusColors = map[taskapi.Status]lipgloss.Color{
	taskapi.StatusCompleted:  "#10b981",
	taskapi.StatusInProgress: "#f59e0b",
	taskapi.StatusPending:    "#6366f1",
	taskapi.StatusOnHold:     "#ef4444",
	taskapi.StatusCancelled:  "#9ca3af",
}

const fallbackColor = lipgloss.Color("#6b7280")

// StatusColor returns the chart colour for a status label. Unknown labels
// get a neutral grey.
func StatusColor(label string) lipgloss.Color {
	status, err := taskapi.ParseStatus(label)
	if err != nil {
		return fallbackColor
	}
	return statusColors[status]
}

// BarChart renders counts as horizontal bars scaled to width cells. colour
// picks each bar's foreground; nil leaves bars unstyled.
func BarChart(counts []Count, width int, colour func(label string) lipgloss.Color) string {
	if len(counts) == 0 {
		return ""
	}
	if width < 1 {
		width = 1
	}

	labelWidth, maxValue := 0, 0
	for _, c := range counts {
		labelWidth = max(labelWidth, lipgloss.Width(c.Label))
		maxValue = max(maxValue, c.Value)
	}

	var b strings.Builder
	for i, c := range counts {
		bar := barLength(c.Value, maxValue, width)
		fill := strings.Repeat("█", bar)
		if colour != nil && fill != "" {
			fill = lipgloss.NewStyle().Foreground(colour(c.Label)).Render(fill)
		}
		fmt.Fprintf(&b, "%-*s %s %d", labelWidth, c.Label, fill, c.Value)
		if i < len(counts)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// barLength scales value to width, giving every non-zero value at least one cell.
func barLength(value, maxValue, width int) int {
	if value <= 0 || maxValue <= 0 {
		return 0
	}
	n := value * width / maxValue
	if n < 1 {
		n = 1
	}
	return n
}
