package feed

import (
	"strings"

	"github.com/pders01/tendr/internal/api"
	"github.com/pders01/tendr/internal/tender"
)

// Filter is the user-controlled part of a tender query.
type Filter struct {
	Search string
	Tab    tender.Tab
}

// Normalized trims the search text and maps an empty tab to TabAll.
func (f Filter) Normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	if f.Tab == "" {
		f.Tab = tender.TabAll
	}
	return f
}

// BuildQuery assembles the list query for one page. Search is included
// only when it is non-blank, status only for tabs other than "all".
func BuildQuery(f Filter, page, limit int) api.Query {
	q := api.Query{Page: page, Limit: limit}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Search = s
	}
	if f.Tab != "" && f.Tab != tender.TabAll {
		q.Status = string(f.Tab)
	}
	return q
}
