package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/pders01/tendr/internal/tender"
)

var (
	sessionBucket = []byte("session")
	tendersBucket = []byte("tenders")
	metaBucket    = []byte("metadata")

	lastSyncKey = []byte("last_sync")
)

// ErrNotFound is returned for lookups of keys the store does not hold.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

// NewStoreWithTimeout opens dbPath, waiting at most timeout for the file
// lock held by another tendr process.
func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{sessionBucket, tendersBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTenders upserts records into the cache, stamping them as seen now.
func (s *Store) SaveTenders(records []tender.Record) error {
	if len(records) == 0 {
		return nil
	}
	seenAt := s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(tendersBucket)
		for _, r := range records {
			if r.ID == "" {
				continue
			}
			data, err := json.Marshal(CachedTender{Record: r, SeenAt: seenAt})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		return tx.Bucket(metaBucket).Put(lastSyncKey, []byte(seenAt.UTC().Format(time.RFC3339Nano)))
	})
}

func (s *Store) GetTender(id string) (*CachedTender, error) {
	var cached CachedTender
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(tendersBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("tender %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &cached)
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

// GetTenders returns cached tenders, most recently seen first. A limit of
// zero or less returns all of them. Unreadable entries are skipped.
func (s *Store) GetTenders(limit int) ([]*CachedTender, error) {
	var tenders []*CachedTender
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tendersBucket).ForEach(func(_ []byte, v []byte) error {
			var cached CachedTender
			if err := json.Unmarshal(v, &cached); err != nil {
				return nil
			}
			tenders = append(tenders, &cached)
			return nil
		})
	})
	sort.SliceStable(tenders, func(i, j int) bool {
		if tenders[i].SeenAt.Equal(tenders[j].SeenAt) {
			return tenders[i].ID < tenders[j].ID
		}
		return tenders[i].SeenAt.After(tenders[j].SeenAt)
	})
	if limit > 0 && len(tenders) > limit {
		tenders = tenders[:limit]
	}
	return tenders, err
}

func (s *Store) CountTenders() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(tendersBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) DeleteTender(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tendersBucket).Delete([]byte(id))
	})
}

// PruneTenders drops cached tenders last seen before cutoff and reports
// how many were removed.
func (s *Store) PruneTenders(cutoff time.Time) (int, error) {
	var stale [][]byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(tendersBucket)
		err := b.ForEach(func(k, v []byte) error {
			var cached CachedTender
			if err := json.Unmarshal(v, &cached); err != nil || cached.SeenAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// LastSync is when tenders were last written to the cache; zero if never.
func (s *Store) LastSync() time.Time {
	var ts time.Time
	_ = s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(metaBucket).Get(lastSyncKey); raw != nil {
			ts, _ = time.Parse(time.RFC3339Nano, string(raw))
		}
		return nil
	})
	return ts
}
