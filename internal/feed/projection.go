package feed

import (
	"strings"
	"time"

	"github.com/pders01/tendr/internal/tender"
)

// Project maps records for display and re-applies the filter locally, so
// rows that no longer match the live search or tab disappear before the
// server's answer for the new filter arrives.
func Project(records []tender.Record, f Filter, now time.Time) []tender.Display {
	out := make([]tender.Display, 0, len(records))
	for _, r := range records {
		d := tender.Map(r, now)
		if Matches(d, f) {
			out = append(out, d)
		}
	}
	return out
}

// Matches is the local filter predicate. The search text is matched
// case-insensitively against title and category. Tabs whose status is
// never derived locally (awarded) are left to the server filter.
func Matches(d tender.Display, f Filter) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(d.Title), q) &&
			!strings.Contains(strings.ToLower(d.Category), q) {
			return false
		}
	}

	if f.Tab == "" || f.Tab == tender.TabAll {
		return true
	}
	status := tender.Status(f.Tab)
	if !tender.Derivable(status) {
		return true
	}
	return d.Status == status
}
