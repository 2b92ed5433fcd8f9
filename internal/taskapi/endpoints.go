package taskapi

import (
	"net/url"
	"strings"
)

// Endpoints maps each logical operation to its URL path. It is fixed when the
// client is built and only read afterwards.
type Endpoints struct {
	Health  string
	Chat    string
	Tasks   string
	Search  string
	Summary string
	Ask     string
}

// DefaultEndpoints returns the paths served by the task backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Health:  "/api/health",
		Chat:    "/api/chat",
		Tasks:   "/api/tasks",
		Search:  "/api/tasks/search",
		Summary: "/api/summary",
		Ask:     "/api/ask",
	}
}

// withDefaults fills blank entries from DefaultEndpoints and normalizes every
// path to a single leading slash.
func (e Endpoints) withDefaults() Endpoints {
	def := DefaultEndpoints()
	pick := func(value, fallback string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			value = fallback
		}
		return "/" + strings.Trim(value, "/")
	}
	return Endpoints{
		Health:  pick(e.Health, def.Health),
		Chat:    pick(e.Chat, def.Chat),
		Tasks:   pick(e.Tasks, def.Tasks),
		Search:  pick(e.Search, def.Search),
		Summary: pick(e.Summary, def.Summary),
		Ask:     pick(e.Ask, def.Ask),
	}
}

// taskPath returns the tasks path with the escaped identifier appended as a
// single segment.
func (e Endpoints) taskPath(name string) string {
	return strings.TrimRight(e.Tasks, "/") + "/" + url.PathEscape(name)
}
