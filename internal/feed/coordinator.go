package feed

import (
	"context"
	"fmt"

	"github.com/pders01/tendr/internal/api"
	"github.com/pders01/tendr/internal/debuglog"
	"github.com/pders01/tendr/internal/tender"
)

// Source is the remote tender list the coordinator pages through.
// *api.Client satisfies it.
type Source interface {
	List(ctx context.Context, q api.Query) (*api.Page, error)
}

// Request is one page fetch issued by Continue. It is tagged with the
// epoch it was issued in so that a late reply can be recognised as stale.
type Request struct {
	Epoch uint64
	Page  int
	Query api.Query

	ctx context.Context
}

// Result is the outcome of a Request, handed back to Complete.
type Result struct {
	Epoch      uint64
	Page       int
	Records    []tender.Record
	TotalCount int
	TotalPages int
	Err        error
}

// State is a read-only view of the paging state.
type State struct {
	Epoch      uint64
	Page       int
	TotalCount int
	TotalPages int
	HasMore    bool
	Loading    bool
	Err        error
	Filter     Filter
}

// Coordinator owns the tender result set and its paging state. Reset,
// Continue, Complete and Dispose mutate state and must be called from a
// single goroutine (the UI event loop). Fetch only performs I/O and may
// run anywhere.
type Coordinator struct {
	source Source
	limit  int
	filter Filter

	epoch      uint64
	page       int
	pending    int // page of the in-flight request, 0 when idle
	totalCount int
	totalPages int
	hasMore    bool
	err        error
	records    []tender.Record
	seen       map[string]struct{}
	cancel     context.CancelFunc
	disposed   bool

	listeners []func([]tender.Record)
	log       *debuglog.FieldLogger
}

func NewCoordinator(source Source, limit int) *Coordinator {
	if limit <= 0 {
		limit = 10
	}
	return &Coordinator{
		source:  source,
		limit:   limit,
		filter:  Filter{}.Normalized(),
		epoch:   1,
		hasMore: true,
		seen:    make(map[string]struct{}),
		log:     debuglog.WithFields(map[string]interface{}{"component": "feed"}),
	}
}

// OnPage registers fn to receive the records each successful page added.
func (c *Coordinator) OnPage(fn func([]tender.Record)) {
	c.listeners = append(c.listeners, fn)
}

// Reset starts a new epoch with the current filter.
func (c *Coordinator) Reset() *Request {
	return c.ResetWith(c.filter)
}

// ResetWith replaces the filter and starts a new epoch: the result set and
// counters are cleared, any outstanding request is released and cancelled,
// and the request for page 1 is returned.
func (c *Coordinator) ResetWith(f Filter) *Request {
	if c.disposed {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.filter = f.Normalized()
	c.epoch++
	c.page = 0
	c.pending = 0
	c.totalCount = 0
	c.totalPages = 0
	c.hasMore = true
	c.err = nil
	c.records = nil
	c.seen = make(map[string]struct{})

	c.log.With("epoch", c.epoch).Debugf("reset (search=%q tab=%s)", c.filter.Search, c.filter.Tab)
	return c.Continue()
}

// Continue returns the request for the next page, or nil when a fetch is
// already in flight or the server has no more pages.
func (c *Coordinator) Continue() *Request {
	if c.disposed || c.pending != 0 || !c.hasMore {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.pending = c.page + 1

	req := &Request{
		Epoch: c.epoch,
		Page:  c.pending,
		Query: BuildQuery(c.filter, c.pending, c.limit),
		ctx:   ctx,
	}
	c.log.With("epoch", req.Epoch).Debugf("issue page %d", req.Page)
	return req
}

// Fetch performs req against the source without touching coordinator state.
func (c *Coordinator) Fetch(req *Request) Result {
	ctx := req.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return c.fetch(ctx, req)
}

// FetchContext is Fetch bounded by ctx instead of the request's own
// context, for callers that own a cancellation scope such as the CLI.
func (c *Coordinator) FetchContext(ctx context.Context, req *Request) Result {
	return c.fetch(ctx, req)
}

func (c *Coordinator) fetch(ctx context.Context, req *Request) Result {
	res := Result{Epoch: req.Epoch, Page: req.Page}

	page, err := c.source.List(ctx, req.Query)
	if err != nil {
		res.Err = fmt.Errorf("loading page %d: %w", req.Page, err)
		return res
	}
	if page == nil {
		res.Err = fmt.Errorf("loading page %d: empty response", req.Page)
		return res
	}

	res.Records = page.Data
	res.TotalCount = page.TotalCount
	res.TotalPages = page.TotalPages
	return res
}

// Complete merges res into the result set. Results from an earlier epoch,
// or for a page that is not in flight, are dropped and false is returned.
func (c *Coordinator) Complete(res Result) bool {
	log := c.log.With("epoch", res.Epoch)

	if c.disposed || res.Epoch != c.epoch || res.Page != c.pending || c.pending == 0 {
		log.Debugf("discard page %d (current epoch %d)", res.Page, c.epoch)
		return false
	}

	c.pending = 0
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if res.Err != nil {
		c.err = res.Err
		log.Warnf("page %d failed: %v", res.Page, res.Err)
		return true
	}

	if res.Page == 1 {
		c.records = nil
		c.seen = make(map[string]struct{})
	}

	added := make([]tender.Record, 0, len(res.Records))
	for _, r := range res.Records {
		if _, dup := c.seen[r.ID]; dup && r.ID != "" {
			log.Warnf("dropping duplicate tender %s on page %d", r.ID, res.Page)
			continue
		}
		c.seen[r.ID] = struct{}{}
		added = append(added, r)
	}
	c.records = append(c.records, added...)

	c.page = res.Page
	c.totalCount = res.TotalCount
	c.totalPages = res.TotalPages
	c.hasMore = c.page < c.totalPages
	c.err = nil

	log.Debugf("merged page %d/%d (+%d, %d held)", c.page, c.totalPages, len(added), len(c.records))

	for _, fn := range c.listeners {
		fn(added)
	}
	return true
}

// Load drives one Continue/Fetch/Complete cycle synchronously. It returns
// nil without fetching when there is nothing to load.
func (c *Coordinator) Load(ctx context.Context) error {
	req := c.Continue()
	if req == nil {
		return nil
	}
	res := c.fetch(ctx, req)
	c.Complete(res)
	return res.Err
}

// Dispose cancels any outstanding request and makes the coordinator inert.
func (c *Coordinator) Dispose() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.disposed = true
	c.pending = 0
	c.hasMore = false
	c.records = nil
	c.listeners = nil
}

func (c *Coordinator) Snapshot() State {
	return State{
		Epoch:      c.epoch,
		Page:       c.page,
		TotalCount: c.totalCount,
		TotalPages: c.totalPages,
		HasMore:    c.hasMore,
		Loading:    c.pending != 0,
		Err:        c.err,
		Filter:     c.filter,
	}
}

// Records returns a copy of the current result set in arrival order.
func (c *Coordinator) Records() []tender.Record {
	out := make([]tender.Record, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Coordinator) Len() int {
	return len(c.records)
}

func (c *Coordinator) Limit() int {
	return c.limit
}
