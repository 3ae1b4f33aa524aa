package storage

import (
	"fmt"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/pders01/tendr/internal/debuglog"
)

var currentSessionKey = []byte("current")

// SessionRepository persists the user session. Get never fails: a missing
// or unreadable session reads as empty.
type SessionRepository interface {
	Get() Session
	Set(Session) error
	Merge(Session) error
}

type boltSessions struct {
	db *bolt.DB
}

// Sessions returns the session repository backed by this store.
func (s *Store) Sessions() SessionRepository {
	return &boltSessions{db: s.db}
}

func (r *boltSessions) Get() Session {
	session := Session{}
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(sessionBucket).Get(currentSessionKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &session)
	})
	if err != nil {
		debuglog.Warnf("session unreadable, starting empty: %v", err)
		return Session{}
	}
	return session
}

func (r *boltSessions) Set(session Session) error {
	if session == nil {
		session = Session{}
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentSessionKey, data)
	})
}

// Merge overlays patch on the stored session. A nil value deletes its key.
func (r *boltSessions) Merge(patch Session) error {
	session := r.Get()
	for k, v := range patch {
		if v == nil {
			delete(session, k)
			continue
		}
		session[k] = v
	}
	return r.Set(session)
}
