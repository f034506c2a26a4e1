// Package ledger tracks which (assignment, threshold) reminders have
// already fired, backed by optional durable storage.
package ledger

import (
	"context"
	"fmt"
	"time"

	"deadlinebot/internal/storage"
	logx "deadlinebot/pkg/logx"
)

// Ledger is the in-memory view of sent reminders, loaded from storage at
// startup and written through on every Record.
//
// It is NOT safe for concurrent use: the poll engine goroutine owns it
// exclusively (commands never write, per the single-thread model).
type Ledger struct {
	log   logx.Logger
	store storage.Store // nil = memory only (volatile)

	entries map[string]time.Time // key -> assignment due time
}

// Key builds the ledger key for an (assignment, threshold) pair.
func Key(assignmentID string, threshold time.Duration) string {
	return fmt.Sprintf("%s|%s", assignmentID, threshold)
}

// Open loads previously recorded entries so a restart does not re-fire
// reminders sent in a prior run. A nil store yields a volatile ledger.
func Open(ctx context.Context, store storage.Store, log logx.Logger) (*Ledger, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Ledger{log: log, store: store, entries: map[string]time.Time{}}
	if store == nil {
		log.Warn("ledger storage disabled; a restart may re-send reminders")
		return l, nil
	}
	loaded, err := store.ListReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger load: %w", err)
	}
	if loaded != nil {
		l.entries = loaded
	}
	log.Info("ledger loaded", logx.Int("entries", len(l.entries)))
	return l, nil
}

// Has reports whether a reminder for the pair was already sent.
func (l *Ledger) Has(assignmentID string, threshold time.Duration) bool {
	_, ok := l.entries[Key(assignmentID, threshold)]
	return ok
}

// Record marks the pair as notified. Idempotent: recording an existing
// entry is a no-op. The in-memory entry is set even if the durable write
// fails, so the running process cannot double-send; the error is returned
// for logging.
func (l *Ledger) Record(ctx context.Context, assignmentID string, threshold time.Duration, dueAt time.Time) error {
	key := Key(assignmentID, threshold)
	if _, ok := l.entries[key]; ok {
		return nil
	}
	l.entries[key] = dueAt
	if l.store == nil {
		return nil
	}
	if err := l.store.PutReminder(ctx, key, dueAt); err != nil {
		return fmt.Errorf("ledger record %s: %w", key, err)
	}
	return nil
}

// Evict removes entries whose assignment due date passed more than
// retention ago. Returns the number of entries removed.
func (l *Ledger) Evict(ctx context.Context, now time.Time, retention time.Duration) int {
	cutoff := now.Add(-retention)
	removed := 0
	for k, dueAt := range l.entries {
		if dueAt.Before(cutoff) {
			delete(l.entries, k)
			removed++
		}
	}
	if removed > 0 && l.store != nil {
		if _, err := l.store.DeleteRemindersBefore(ctx, cutoff); err != nil {
			l.log.Warn("ledger eviction write failed", logx.Err(err))
		}
	}
	return removed
}

func (l *Ledger) Len() int { return len(l.entries) }
