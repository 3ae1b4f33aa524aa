package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/tendr/internal/tender"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	if err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestStore_SaveAndGetTender(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seen := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = fixedClock(seen)

	record := tender.Record{
		ID:          "t-1",
		Title:       "Ring road resurfacing",
		Category:    "Works",
		Value:       12_500_000,
		BidDeadline: seen.Add(72 * time.Hour),
		IsActive:    true,
		Documents:   []tender.Document{{Name: "BOQ", URL: "https://example.com/boq.pdf"}},
	}

	if err := store.SaveTenders([]tender.Record{record}); err != nil {
		t.Fatalf("failed to save tender: %v", err)
	}

	got, err := store.GetTender("t-1")
	if err != nil {
		t.Fatalf("failed to get tender: %v", err)
	}
	if got.Title != record.Title {
		t.Errorf("expected title %q, got %q", record.Title, got.Title)
	}
	if got.Value != record.Value {
		t.Errorf("expected value %v, got %v", record.Value, got.Value)
	}
	if !got.SeenAt.Equal(seen) {
		t.Errorf("expected seenAt %v, got %v", seen, got.SeenAt)
	}
	if len(got.Documents) != 1 || got.Documents[0].Name != "BOQ" {
		t.Errorf("documents not round-tripped: %+v", got.Documents)
	}
	if !store.LastSync().Equal(seen) {
		t.Errorf("expected last sync %v, got %v", seen, store.LastSync())
	}
}

func TestStore_GetTender_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetTender("non-existent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveTenders_SkipsEmptyIDs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.SaveTenders([]tender.Record{{ID: ""}, {ID: "t-2"}}); err != nil {
		t.Fatalf("failed to save tenders: %v", err)
	}
	n, err := store.CountTenders()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 cached tender, got %d", n)
	}

	if err := store.SaveTenders(nil); err != nil {
		t.Errorf("saving nothing should succeed, got %v", err)
	}
}

func TestStore_GetTenders_NewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		store.now = fixedClock(base.Add(time.Duration(i) * time.Hour))
		if err := store.SaveTenders([]tender.Record{{ID: id, Title: id}}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.GetTenders(0)
	if err != nil {
		t.Fatalf("failed to get tenders: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tenders, got %d", len(all))
	}
	for i, want := range []string{"c", "b", "a"} {
		if all[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, all[i].ID)
		}
	}

	limited, err := store.GetTenders(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 tenders with limit, got %d", len(limited))
	}
}

func TestStore_SaveTenders_Upserts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.SaveTenders([]tender.Record{{ID: "t-1", Title: "Old"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTenders([]tender.Record{{ID: "t-1", Title: "New"}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetTender("t-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
	if n, _ := store.CountTenders(); n != 1 {
		t.Errorf("expected 1 tender after upsert, got %d", n)
	}
}

func TestStore_DeleteAndPrune(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(30 * 24 * time.Hour)

	store.now = fixedClock(old)
	if err := store.SaveTenders([]tender.Record{{ID: "old-1"}, {ID: "old-2"}}); err != nil {
		t.Fatal(err)
	}
	store.now = fixedClock(recent)
	if err := store.SaveTenders([]tender.Record{{ID: "new-1"}, {ID: "new-2"}}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTender("new-2"); err != nil {
		t.Fatalf("failed to delete tender: %v", err)
	}
	if _, err := store.GetTender("new-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted tender to be gone, got %v", err)
	}

	removed, err := store.PruneTenders(recent.Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 pruned, got %d", removed)
	}

	remaining, _ := store.GetTenders(0)
	if len(remaining) != 1 || remaining[0].ID != "new-1" {
		t.Errorf("unexpected remaining tenders: %+v", remaining)
	}
}

func TestStore_LastSyncZeroWhenEmpty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if !store.LastSync().IsZero() {
		t.Errorf("expected zero last sync, got %v", store.LastSync())
	}
}

func TestNewStore_InvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("expected error for unwritable path, got nil")
	}
}

func TestSessions_EmptyByDefault(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	session := store.Sessions().Get()
	if session == nil || len(session) != 0 {
		t.Errorf("expected empty session, got %v", session)
	}
}

func TestSessions_SetGetMerge(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	repo := store.Sessions()
	if err := repo.Set(Session{SessionDisplayName: "Asha", SessionRole: "vendor", SessionTab: "draft"}); err != nil {
		t.Fatalf("failed to set session: %v", err)
	}

	if err := repo.Merge(Session{SessionTab: "published", SessionSearch: "road", SessionRole: nil}); err != nil {
		t.Fatalf("failed to merge session: %v", err)
	}

	got := repo.Get()
	if got.String(SessionDisplayName) != "Asha" {
		t.Errorf("merge lost display name: %v", got)
	}
	if got.String(SessionTab) != "published" {
		t.Errorf("expected tab published, got %q", got.String(SessionTab))
	}
	if got.String(SessionSearch) != "road" {
		t.Errorf("expected search road, got %q", got.String(SessionSearch))
	}
	if _, ok := got[SessionRole]; ok {
		t.Errorf("nil value should delete role, got %v", got[SessionRole])
	}
}

func TestSessions_CorruptBlobReadsEmpty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentSessionKey, []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}

	repo := store.Sessions()
	if got := repo.Get(); len(got) != 0 {
		t.Errorf("expected empty session for corrupt data, got %v", got)
	}

	if err := repo.Merge(Session{SessionSearch: "bridge"}); err != nil {
		t.Fatalf("merge over corrupt session failed: %v", err)
	}
	if got := repo.Get().String(SessionSearch); got != "bridge" {
		t.Errorf("expected recovered session, got %q", got)
	}
}

func TestSession_StringAndClone(t *testing.T) {
	s := Session{"name": "x", "count": 3.0}
	if s.String("name") != "x" {
		t.Errorf("expected x, got %q", s.String("name"))
	}
	if s.String("count") != "" {
		t.Errorf("non-string value should read as empty")
	}

	c := s.Clone()
	c["name"] = "y"
	if s.String("name") != "x" {
		t.Errorf("clone shares storage with original")
	}

	var nilSession Session
	if nilSession.Clone() == nil {
		t.Errorf("clone of nil should be empty, not nil")
	}
}
