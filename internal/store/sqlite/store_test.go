package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/logger"
)

// testClock is a settable time source.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := newClockedStore(t)
	return s
}

func newClockedStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(dbPath, logger.Discard(), WithLocation(time.UTC), WithClock(clock.now))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{
		"segment_completions", "daily_activity", "streak_summary", "emoji_reactions",
		"reading_sessions", "book_completions", "achievements", "progress_runs",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_IdempotentAndSeedsStreakOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := Open(dbPath, logger.Discard(), WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.RecordMainCompletion(ctx, "S001", "", BookCheck{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	s.Close()

	s, err = Open(dbPath, logger.Discard(), WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM streak_summary").Scan(&rows); err != nil {
		t.Fatalf("count streak rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected 1 streak row, got %d", rows)
	}

	summary, err := s.GetStreakSummary(ctx)
	if err != nil {
		t.Fatalf("get streak: %v", err)
	}
	if summary.CurrentStreak != 1 {
		t.Errorf("reopen reset streak: got %d", summary.CurrentStreak)
	}
}

func TestOpen_FailureIsPersistenceInit(t *testing.T) {
	// A directory cannot be opened as a database file.
	_, err := Open(t.TempDir(), logger.Discard())
	if err == nil {
		t.Fatal("expected error opening a directory")
	}
	if !domainerrors.Is(err, domainerrors.ErrPersistenceInit) {
		t.Errorf("expected PERSISTENCE_INIT, got %v", err)
	}
}

func TestClosedStore_ReadsFail(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	_, err := s.QueryCompletion(context.Background(), "S001", mainCtx)
	if !domainerrors.Is(err, domainerrors.ErrPersistenceRead) {
		t.Fatalf("expected PERSISTENCE_READ after close, got %v", err)
	}

	_, err = s.RecordCompletion(context.Background(), "S001", mainCtx, "")
	if !domainerrors.Is(err, domainerrors.ErrPersistenceWrite) {
		t.Fatalf("expected PERSISTENCE_WRITE after close, got %v", err)
	}
}
