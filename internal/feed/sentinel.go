package feed

// Sentinel is the infinite-scroll trigger. It is anchored on the identity
// of the last rendered tender, not its index, and reports visibility of
// that anchor at most once. Moving the anchor or merging a page re-arms it.
type Sentinel struct {
	anchor string
	fired  bool
}

// Arm anchors the sentinel on id. Re-arming on the same id keeps the
// fired state so a redraw cannot trigger twice.
func (s *Sentinel) Arm(id string) {
	if id == s.anchor {
		return
	}
	s.anchor = id
	s.fired = false
}

// Armed reports whether seeing id should trigger a continuation.
func (s *Sentinel) Armed(id string) bool {
	return id != "" && id == s.anchor && !s.fired
}

// Reset forgets the anchor so the next Arm re-arms even on the same id.
// A merged page that added no visible row leaves the last row unchanged
// and still needs the next page to be reachable.
func (s *Sentinel) Reset() {
	s.anchor = ""
	s.fired = false
}

// Trip marks the current anchor as used.
func (s *Sentinel) Trip() {
	s.fired = true
}

func (s *Sentinel) Anchor() string {
	return s.anchor
}
