package search

import (
	"github.com/pders01/tendr/internal/storage"
	"github.com/pders01/tendr/internal/tender"
)

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer is implemented by engines that keep their own index and must be
// told about tenders as pages arrive.
type Indexer interface {
	Index(records []tender.Record) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is a tender that matched a find query.
type Result struct {
	Tender  *storage.CachedTender
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "title", "category", "description"
	Text   string
	Weight float64
}

// minQueryLen is the shortest query either engine will run.
const minQueryLen = 2
