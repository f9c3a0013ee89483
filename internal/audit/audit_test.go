package audit

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/store"
)

func newTestStore(t *testing.T, path string) *store.Store {
	t.Helper()
	backend, err := store.NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	s, err := store.New(backend, "test-secret")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestRecordNewestFirst(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()
	l := NewLog(s)

	l.Record(1, model.AuditScan, "first", "", nil)
	l.Record(1, model.AuditScan, "second", "", nil)

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Summary != "second" || entries[1].Summary != "first" {
		t.Errorf("wrong order: %q, %q", entries[0].Summary, entries[1].Summary)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries need distinct non-empty ids")
	}
}

func TestTrailCap(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()
	l := NewLog(s)

	for i := 0; i < maxEntries+25; i++ {
		l.Record(1, model.AuditScan, fmt.Sprintf("scan %d", i), "", nil)
	}

	entries := l.Entries()
	if len(entries) != maxEntries {
		t.Fatalf("expected %d entries, got %d", maxEntries, len(entries))
	}
	// Newest survives, oldest are evicted.
	if entries[0].Summary != fmt.Sprintf("scan %d", maxEntries+24) {
		t.Errorf("newest entry is %q", entries[0].Summary)
	}
	if entries[maxEntries-1].Summary != "scan 25" {
		t.Errorf("oldest surviving entry is %q", entries[maxEntries-1].Summary)
	}
}

func TestEntriesFor(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	defer s.Close()
	l := NewLog(s)

	l.Record(1, model.AuditScan, "a", "", nil)
	l.Record(2, model.AuditScan, "b", "", nil)
	l.Record(1, model.AuditRecommendation, "c", "", nil)

	got := l.EntriesFor(1)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for agent 1, got %d", len(got))
	}
	if got[0].Summary != "c" || got[1].Summary != "a" {
		t.Errorf("wrong entries: %q, %q", got[0].Summary, got[1].Summary)
	}
}

func TestTrailPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s := newTestStore(t, path)
	l := NewLog(s)
	l.Record(1, model.AuditExecuted, "kept", "", map[string]any{"tx": "0xabc"})
	s.Close()

	s2 := newTestStore(t, path)
	defer s2.Close()
	l2 := NewLog(s2)

	entries := l2.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 reloaded entry, got %d", len(entries))
	}
	if entries[0].Summary != "kept" {
		t.Errorf("reloaded summary %q", entries[0].Summary)
	}
	if entries[0].Metadata["tx"] != "0xabc" {
		t.Errorf("reloaded metadata %v", entries[0].Metadata)
	}
}

func TestConcurrentRecordPersistsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s := newTestStore(t, path)
	l := NewLog(s)

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				l.Record(uint64(w), model.AuditScan, fmt.Sprintf("writer %d entry %d", w, i), "", nil)
			}
		}(w)
	}
	wg.Wait()

	inMem := l.Entries()
	if len(inMem) != writers*perWriter {
		t.Fatalf("in-memory trail has %d entries, want %d", len(inMem), writers*perWriter)
	}
	s.Close()

	// The reloaded trail must match the final in-memory state exactly; a
	// stale snapshot winning the last write would come up short.
	s2 := newTestStore(t, path)
	defer s2.Close()
	reloaded := NewLog(s2).Entries()
	if len(reloaded) != len(inMem) {
		t.Fatalf("persisted trail has %d entries, in-memory had %d", len(reloaded), len(inMem))
	}
	for i := range inMem {
		if reloaded[i].ID != inMem[i].ID {
			t.Fatalf("entry %d: persisted %q, in-memory %q", i, reloaded[i].ID, inMem[i].ID)
		}
	}
}

func TestFeedCapAndRecent(t *testing.T) {
	f := NewFeed()
	for i := 0; i < maxActivity+10; i++ {
		f.Add(1, "Scout", fmt.Sprintf("line %d", i), model.ActivityInfo)
	}

	all := f.Recent(maxActivity + 100)
	if len(all) != maxActivity {
		t.Fatalf("expected %d entries, got %d", maxActivity, len(all))
	}
	if all[0].Message != fmt.Sprintf("line %d", maxActivity+9) {
		t.Errorf("newest entry is %q", all[0].Message)
	}

	few := f.Recent(3)
	if len(few) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(few))
	}
	if few[2].Message != fmt.Sprintf("line %d", maxActivity+7) {
		t.Errorf("third entry is %q", few[2].Message)
	}
}
