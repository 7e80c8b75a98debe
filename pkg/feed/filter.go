package feed

import (
	"strings"

	"github.com/Sternrassler/launchlist/pkg/launch"
)

// NormalizeQuery trims surrounding whitespace from a raw search input.
func NormalizeQuery(raw string) string {
	return strings.TrimSpace(raw)
}

// Filter returns the records whose mission name contains the trimmed query,
// ignoring case. An empty or whitespace-only query matches nothing; callers
// show the paginated view instead.
func Filter(records []launch.Launch, query string) []launch.Launch {
	q := strings.ToLower(NormalizeQuery(query))
	if q == "" {
		return nil
	}

	var out []launch.Launch
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.MissionName), q) {
			out = append(out, r)
		}
	}
	return out
}
