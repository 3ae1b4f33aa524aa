package feed

import (
	"time"

	"github.com/pders01/tendr/internal/tender"
)

// Controller is the tender feed as the dashboard sees it: a Coordinator
// plus the three triggers that feed it (scroll sentinel, debounced search,
// tab change) and the local projection used for display.
type Controller struct {
	coord    *Coordinator
	debounce *Debouncer
	sentinel Sentinel

	// live filter as typed/selected; the coordinator's filter catches up
	// on the next reset
	search string
	tab    tender.Tab

	now func() time.Time
}

func NewController(source Source, limit int, debounce time.Duration) *Controller {
	return &Controller{
		coord:    NewCoordinator(source, limit),
		debounce: NewDebouncer(debounce),
		tab:      tender.TabAll,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for derived fields.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Controller) Coordinator() *Coordinator {
	return c.coord
}

// Start begins the first epoch with f.
func (c *Controller) Start(f Filter) *Request {
	f = f.Normalized()
	c.search = f.Search
	c.tab = f.Tab
	return c.reset()
}

// SetSearch records a search edit. The returned Tick must be delivered
// back through FireSearch once its delay has passed.
func (c *Controller) SetSearch(text string) Tick {
	c.search = text
	c.rearm()
	return c.debounce.Touch(text)
}

// FireSearch resets the feed when seq is the last search edit.
func (c *Controller) FireSearch(seq uint64) *Request {
	text, ok := c.debounce.Fire(seq)
	if !ok {
		return nil
	}
	c.search = text
	return c.reset()
}

// SetTab switches the status tab and resets immediately. Selecting the
// current tab again does nothing.
func (c *Controller) SetTab(tab tender.Tab) *Request {
	if tab == "" {
		tab = tender.TabAll
	}
	if tab == c.tab {
		return nil
	}
	c.tab = tab
	// The reset carries the live search text, so a pending edit is moot.
	c.debounce.Cancel()
	return c.reset()
}

// Observe is called with the ID of a rendered tender that became visible.
// Seeing the last one loads the next page.
func (c *Controller) Observe(id string) *Request {
	if !c.sentinel.Armed(id) {
		return nil
	}
	st := c.coord.Snapshot()
	if st.Loading || !st.HasMore {
		return nil
	}
	c.sentinel.Trip()
	return c.coord.Continue()
}

// Reset starts over with the live filter.
func (c *Controller) Reset() *Request {
	return c.reset()
}

// Continue asks for the next page directly.
func (c *Controller) Continue() *Request {
	return c.coord.Continue()
}

// Retry re-attempts after a failure: the failed page again, or a fresh
// start when nothing has loaded in this epoch.
func (c *Controller) Retry() *Request {
	st := c.coord.Snapshot()
	if st.Loading {
		return nil
	}
	if st.Page == 0 || st.Filter != c.Filter().Normalized() {
		return c.reset()
	}
	return c.coord.Continue()
}

func (c *Controller) Fetch(req *Request) Result {
	return c.coord.Fetch(req)
}

// Complete merges a fetch result and re-anchors the sentinel. After a
// successful page the sentinel is re-armed even if the last visible row
// did not move; a failed page keeps it spent so retry stays manual.
func (c *Controller) Complete(res Result) bool {
	merged := c.coord.Complete(res)
	if merged {
		if res.Err == nil {
			c.sentinel.Reset()
		}
		c.rearm()
	}
	return merged
}

// Items is the projected, display-ready result set.
func (c *Controller) Items() []tender.Display {
	return Project(c.coord.records, c.Filter(), c.now())
}

func (c *Controller) State() State {
	return c.coord.Snapshot()
}

// Filter is the live filter, which may be ahead of State().Filter while a
// search edit is debouncing.
func (c *Controller) Filter() Filter {
	return Filter{Search: c.search, Tab: c.tab}
}

func (c *Controller) SearchPending() bool {
	return c.debounce.Pending()
}

func (c *Controller) Dispose() {
	c.debounce.Cancel()
	c.coord.Dispose()
}

func (c *Controller) reset() *Request {
	req := c.coord.ResetWith(c.Filter())
	c.rearm()
	return req
}

func (c *Controller) rearm() {
	items := c.Items()
	if len(items) == 0 {
		c.sentinel.Arm("")
		return
	}
	c.sentinel.Arm(items[len(items)-1].ID)
}
