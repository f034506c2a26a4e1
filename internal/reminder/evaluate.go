package reminder

import "time"

// Evaluate computes the reminders due to fire at now, given the current
// snapshot and a ledger membership check. Pure: no side effects, and
// idempotent for fixed inputs — calling it repeatedly before the ledger
// commit is observed yields the same pairs, never duplicates beyond them.
//
// Thresholds must be ordered descending by lead time (validated at config
// load), which walks each assignment's fire instants (dueAt - T)
// ascending, so multiple thresholds matured while the process was offline
// all fire in one tick, in order.
//
// An assignment past its due date gains no new fire instants (every
// dueAt - T is already in the past), but matured thresholds not yet in
// the ledger still fire exactly once.
func Evaluate(now time.Time, snap *Snapshot, thresholds []time.Duration, has func(assignmentID string, threshold time.Duration) bool) []Due {
	if snap == nil {
		return nil
	}
	var due []Due
	for _, a := range snap.Assignments {
		for _, t := range thresholds {
			fireAt := a.DueAt.Add(-t)
			if now.Before(fireAt) {
				continue
			}
			if has(a.ID, t) {
				continue
			}
			due = append(due, Due{Assignment: a, Threshold: t})
		}
	}
	return due
}
