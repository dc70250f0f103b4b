package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := openTestStore(t)

	records := []*Record{
		{JobID: "job-1", PresetID: "flux-dev", Status: "completed", FileCount: 3, BytesTotal: 4096},
		{JobID: "job-2", PresetID: "whisper-large", Status: "failed", Error: "network_failure: connection reset", FileCount: 1},
		{JobID: "job-3", PresetID: "flux-dev", Status: "cancelled", FileCount: 3, BytesTotal: 1024},
	}
	for _, rec := range records {
		rec.CreatedAt = time.Now().Add(-time.Minute)
		rec.FinishedAt = time.Now()
		if err := store.Append(rec); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	recent, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}

	// Newest first
	if recent[0].JobID != "job-3" || recent[2].JobID != "job-1" {
		t.Errorf("expected newest-first ordering, got %s..%s", recent[0].JobID, recent[2].JobID)
	}
	if recent[1].Error == "" {
		t.Error("expected failure reason to round-trip")
	}
}

func TestStore_RecentLimit(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Append(&Record{JobID: "job", PresetID: "p", Status: "completed"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	recent, err := store.Recent(2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected limit of 2, got %d", len(recent))
	}
}

func TestStore_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Append(&Record{JobID: "job-1", PresetID: "p", Status: "completed"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	recent, err := reopened.Recent(10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].JobID != "job-1" {
		t.Errorf("expected persisted record after reopen, got %+v", recent)
	}
}
