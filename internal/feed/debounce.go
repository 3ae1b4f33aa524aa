package feed

import "time"

// DefaultSearchDebounce is the quiet period after the last keystroke
// before a search resets the feed.
const DefaultSearchDebounce = 300 * time.Millisecond

// Tick asks the caller to call Debouncer.Fire(Seq) once After has elapsed.
type Tick struct {
	Seq   uint64
	After time.Duration
}

// Debouncer collapses a burst of search edits into one trigger. It does
// no scheduling itself: Touch hands back a Tick and the owner delivers it
// (in the dashboard, via tea.Tick). Only the most recent Tick fires.
type Debouncer struct {
	delay   time.Duration
	seq     uint64
	pending string
	armed   bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay}
}

// Touch records an edit and restarts the quiet period.
func (d *Debouncer) Touch(text string) Tick {
	d.seq++
	d.pending = text
	d.armed = true
	return Tick{Seq: d.seq, After: d.delay}
}

// Fire reports the settled text when seq is the latest Touch and has not
// fired or been cancelled yet. Empty text fires like any other edit.
func (d *Debouncer) Fire(seq uint64) (string, bool) {
	if !d.armed || seq != d.seq {
		return "", false
	}
	d.armed = false
	return d.pending, true
}

// Cancel drops the pending edit, if any.
func (d *Debouncer) Cancel() {
	d.armed = false
}

func (d *Debouncer) Pending() bool {
	return d.armed
}

func (d *Debouncer) Delay() time.Duration {
	return d.delay
}
