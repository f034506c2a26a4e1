// Package reminder implements the polling/reminder engine: deciding when
// an assignment is due soon, whether that reminder already fired, and
// answering chat commands from the same state.
package reminder

import (
	"time"

	"deadlinebot/internal/canvas"
)

// Snapshot is the most recent successful fetch, replaced wholesale on
// every successful poll tick. Commands and the evaluator always read the
// same snapshot reference within a cycle.
type Snapshot struct {
	FetchedAt   time.Time
	Assignments []canvas.Assignment
}

// Due is one (assignment, threshold) reminder that must fire now.
type Due struct {
	Assignment canvas.Assignment
	Threshold  time.Duration
}
