package reminder

import (
	"testing"
	"time"

	"deadlinebot/internal/canvas"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func snapOf(as ...canvas.Assignment) *Snapshot {
	return &Snapshot{FetchedAt: baseTime, Assignments: as}
}

func assignment(id, course, title string, due time.Time) canvas.Assignment {
	return canvas.Assignment{ID: id, CourseName: course, Title: title, DueAt: due}
}

func hasNone(string, time.Duration) bool { return false }

func TestEvaluateThresholdScenario(t *testing.T) {
	t.Parallel()
	// Assignment due at T+25h, thresholds [24h, 1h].
	thresholds := []time.Duration{24 * time.Hour, time.Hour}
	a := assignment("101:1", "Biology", "Essay", baseTime.Add(25*time.Hour))
	snap := snapOf(a)

	sent := map[string]bool{}
	has := func(id string, th time.Duration) bool { return sent[id+th.String()] }
	record := func(ds []Due) {
		for _, d := range ds {
			sent[d.Assignment.ID+d.Threshold.String()] = true
		}
	}

	// At T nothing has matured yet (first instant is T+1h).
	if got := Evaluate(baseTime, snap, thresholds, has); len(got) != 0 {
		t.Fatalf("at T: fired %d, want 0", len(got))
	}

	// Tick at T+1h: 24h threshold fires once.
	got := Evaluate(baseTime.Add(time.Hour), snap, thresholds, has)
	if len(got) != 1 || got[0].Threshold != 24*time.Hour {
		t.Fatalf("at T+1h: %+v, want single 24h reminder", got)
	}
	record(got)

	// Re-run at the same instant: recorded pair must not fire again.
	if got := Evaluate(baseTime.Add(time.Hour), snap, thresholds, has); len(got) != 0 {
		t.Fatalf("at T+1h repeat: fired %d, want 0", len(got))
	}

	// Tick at T+24h: 1h threshold fires once.
	got = Evaluate(baseTime.Add(24*time.Hour), snap, thresholds, has)
	if len(got) != 1 || got[0].Threshold != time.Hour {
		t.Fatalf("at T+24h: %+v, want single 1h reminder", got)
	}
	record(got)

	// After due time nothing further fires.
	if got := Evaluate(baseTime.Add(26*time.Hour), snap, thresholds, has); len(got) != 0 {
		t.Fatalf("past due: fired %d, want 0", len(got))
	}
}

func TestEvaluateOfflineCatchupFiresAllMatured(t *testing.T) {
	t.Parallel()
	// Process was down: both thresholds matured by the time we tick.
	thresholds := []time.Duration{24 * time.Hour, time.Hour}
	a := assignment("101:1", "Biology", "Essay", baseTime.Add(30*time.Minute))
	got := Evaluate(baseTime, snapOf(a), thresholds, hasNone)
	if len(got) != 2 {
		t.Fatalf("fired %d, want 2", len(got))
	}
	// Ascending fire instant: largest lead time first.
	if got[0].Threshold != 24*time.Hour || got[1].Threshold != time.Hour {
		t.Fatalf("order = %v, %v; want 24h then 1h", got[0].Threshold, got[1].Threshold)
	}
}

func TestEvaluateIdempotentBeforeCommit(t *testing.T) {
	t.Parallel()
	thresholds := []time.Duration{time.Hour}
	a := assignment("101:1", "Biology", "Essay", baseTime.Add(30*time.Minute))
	snap := snapOf(a)

	first := Evaluate(baseTime, snap, thresholds, hasNone)
	second := Evaluate(baseTime, snap, thresholds, hasNone)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("lens = %d, %d; want 1, 1", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatalf("results differ: %+v vs %+v", first[0], second[0])
	}
}

func TestEvaluatePastDueStillFiresUnrecorded(t *testing.T) {
	t.Parallel()
	// Due date already passed but the 1h reminder never fired (offline).
	thresholds := []time.Duration{time.Hour}
	a := assignment("101:1", "Biology", "Essay", baseTime.Add(-10*time.Minute))
	got := Evaluate(baseTime, snapOf(a), thresholds, hasNone)
	if len(got) != 1 {
		t.Fatalf("fired %d, want 1", len(got))
	}
}

func TestEvaluateNilSnapshot(t *testing.T) {
	t.Parallel()
	if got := Evaluate(baseTime, nil, []time.Duration{time.Hour}, hasNone); got != nil {
		t.Fatalf("fired %d for nil snapshot, want none", len(got))
	}
}
