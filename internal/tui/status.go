package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/tendr/internal/feed"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingTenders = "Loading tenders…"
	MsgLoadingMore    = "Loading more…"
	MsgRetrying       = "Retrying…"
	MsgRendering      = "Rendering tender…"
	MsgSearching      = "Searching…"
	MsgNoResults      = "No results"
	MsgNoDocuments    = "No documents attached"
	MsgProfileSaved   = "Profile saved"
	MsgEndOfList      = "End of list"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

// MsgFeedSummary describes how much of the result set is loaded, e.g.
// "12 of 40 • page 2/4".
func MsgFeedSummary(shown int, st feed.State) string {
	parts := []string{fmt.Sprintf("%d of %d", shown, st.TotalCount)}
	if st.TotalPages > 0 {
		parts = append(parts, fmt.Sprintf("page %d/%d", st.Page, st.TotalPages))
	}
	if st.Page > 0 && !st.HasMore && !st.Loading {
		parts = append(parts, MsgEndOfList)
	}
	return strings.Join(parts, " • ")
}

func MsgOpening(name string) string {
	return fmt.Sprintf("Opening %s…", strings.TrimSpace(name))
}
