package search

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/tendr/internal/debuglog"
	"github.com/pders01/tendr/internal/storage"
	"github.com/pders01/tendr/internal/tender"
)

type bleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// every tender already cached in store. An empty indexPath keeps the index
// in memory.
func NewBleveEngine(store *storage.Store, indexPath string) (Searcher, error) {
	idx, err := openIndex(indexPath)
	if err != nil {
		return nil, err
	}

	be := &bleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func openIndex(indexPath string) (bleve.Index, error) {
	if indexPath == "" {
		return bleve.NewMemOnly(buildIndexMapping())
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, err
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		debuglog.Infof("creating search index at %s (%v)", indexPath, err)
		return bleve.New(indexPath, buildIndexMapping())
	}
	return idx, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	category := bleve.NewTextFieldMapping()
	category.Analyzer = standard.Name
	category.Store = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name
	author.Store = true

	status := bleve.NewTextFieldMapping()
	status.Analyzer = keyword.Name
	status.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("category", category)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("created_by", author)
	dm.AddFieldMappingsAt("active", status)

	im.DefaultMapping = dm
	return im
}

func (b *bleveEngine) reindexAll() error {
	cached, err := b.store.GetTenders(0)
	if err != nil {
		return err
	}
	records := make([]tender.Record, 0, len(cached))
	for _, c := range cached {
		records = append(records, c.Record)
	}
	return b.Index(records)
}

// Index adds or replaces the given tenders in the index.
func (b *bleveEngine) Index(records []tender.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := b.idx.NewBatch()
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if err := batch.Index(r.ID, document(r)); err != nil {
			return err
		}
	}
	return b.idx.Batch(batch)
}

func document(r tender.Record) map[string]any {
	active := "inactive"
	if r.IsActive {
		active = "active"
	}
	return map[string]any{
		"title":       r.Title,
		"category":    r.Category,
		"description": r.Description,
		"created_by":  r.CreatedBy,
		"active":      active,
	}
}

func (b *bleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < minQueryLen {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qs = append(qs,
			fieldMatch(tok, "title", 4.0),
			fieldPrefix(tok, "title", 3.5),
			fieldMatch(tok, "category", 2.5),
			fieldPrefix(tok, "category", 2.0),
			fieldMatch(tok, "description", 1.0),
			fieldPrefix(tok, "description", 0.8),
			fieldMatch(tok, "created_by", 0.5),
		)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "category"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{Score: h.Score}
		if cached, err := b.store.GetTender(h.ID); err == nil {
			r.Tender = cached
		} else {
			// index outlived the cache entry; rebuild what the index stored
			debuglog.Debugf("search hit %s not in cache: %v", h.ID, err)
			t := &storage.CachedTender{Record: tender.Record{ID: h.ID}}
			if v, ok := h.Fields["title"].(string); ok {
				t.Title = v
			}
			if v, ok := h.Fields["category"].(string); ok {
				t.Category = v
			}
			r.Tender = t
		}
		if r.Tender.Title != "" {
			r.Matches = append(r.Matches, Match{Field: "title", Text: r.Tender.Title, Weight: h.Score})
		}
		out = append(out, r)
	}
	return out, nil
}

func fieldMatch(tok, field string, boost float64) bleveQuery.Query {
	q := bleve.NewMatchQuery(tok)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldPrefix(tok, field string, boost float64) bleveQuery.Query {
	q := bleve.NewPrefixQuery(strings.ToLower(tok))
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// DocCount reports total documents in the index.
func (b *bleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *bleveEngine) Close() error {
	return b.idx.Close()
}
