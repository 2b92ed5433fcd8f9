package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// markdownRenderers caches one glamour renderer per wrap width.
var markdownRenderers = struct {
	sync.Mutex
	byWidth map[int]*glamour.TermRenderer
}{byWidth: map[int]*glamour.TermRenderer{}}

// renderMarkdown converts the backend's markdown replies to styled ANSI
// output wrapped at width. Falls back to the raw text if glamour fails.
func renderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	width = max(width, 20)

	markdownRenderers.Lock()
	r, ok := markdownRenderers.byWidth[width]
	if !ok {
		var err error
		// No auto style: the terminal is owned by Bubble Tea.
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			markdownRenderers.Unlock()
			return md
		}
		markdownRenderers.byWidth[width] = r
	}
	out, err := r.Render(md)
	markdownRenderers.Unlock()
	if err != nil {
		return md
	}
	// glamour pads with blank lines; trim for inline display.
	return strings.Trim(out, "\n")
}
