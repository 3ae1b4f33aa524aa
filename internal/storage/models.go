package storage

import (
	"time"

	"github.com/pders01/tendr/internal/tender"
)

// Session keys the dashboard reads and writes.
const (
	SessionTab         = "tab"
	SessionSearch      = "search"
	SessionDisplayName = "displayName"
	SessionEmail       = "email"
	SessionRole        = "role"
	SessionToken       = "token"
)

// Session is the persisted user session: a flat bag of JSON values.
type Session map[string]any

// String returns the value at key when it is a string, else "".
func (s Session) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy; a nil session clones to an empty one.
func (s Session) Clone() Session {
	out := make(Session, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CachedTender is a tender as last seen from the API.
type CachedTender struct {
	tender.Record
	SeenAt time.Time `json:"seenAt"`
}
