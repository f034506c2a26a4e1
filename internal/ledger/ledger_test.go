package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deadlinebot/internal/storage"
	logx "deadlinebot/pkg/logx"
)

func TestRecordIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, err := Open(ctx, nil, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	due := time.Now().Add(24 * time.Hour)
	if l.Has("101:5", time.Hour) {
		t.Fatal("fresh ledger should not contain entries")
	}
	if err := l.Record(ctx, "101:5", time.Hour, due); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(ctx, "101:5", time.Hour, due); err != nil {
		t.Fatalf("Record (repeat): %v", err)
	}
	if !l.Has("101:5", time.Hour) {
		t.Fatal("entry missing after Record")
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}

	// Distinct thresholds are distinct entries.
	if l.Has("101:5", 24*time.Hour) {
		t.Fatal("unexpected entry for other threshold")
	}
}

func TestRestartDoesNotRefire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	cfg := storage.Config{Driver: "file", Path: filepath.Join(dir, "store")}

	st, err := storage.Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	l, err := Open(ctx, st, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	due := time.Now().Add(24 * time.Hour)
	if err := l.Record(ctx, "101:5", 24*time.Hour, due); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulated restart: the reloaded ledger must already have the entry.
	st, err = storage.Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("storage reopen: %v", err)
	}
	defer st.Close()
	l2, err := Open(ctx, st, logx.Nop())
	if err != nil {
		t.Fatalf("Open after restart: %v", err)
	}
	if !l2.Has("101:5", 24*time.Hour) {
		t.Fatal("entry lost across restart")
	}
}

func TestEvict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, err := Open(ctx, nil, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	retention := 30 * 24 * time.Hour

	if err := l.Record(ctx, "old", time.Hour, now.Add(-31*24*time.Hour)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(ctx, "recent", time.Hour, now.Add(-2*24*time.Hour)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(ctx, "future", time.Hour, now.Add(24*time.Hour)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	removed := l.Evict(ctx, now, retention)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if l.Has("old", time.Hour) {
		t.Fatal("evicted entry still present")
	}
	if !l.Has("recent", time.Hour) || !l.Has("future", time.Hour) {
		t.Fatal("eviction removed entries inside the retention window")
	}
}
