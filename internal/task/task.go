package task

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a caller-chosen identifier for a task. Uniqueness is enforced per
// registry, not globally; equality is by value.
type ID string

// NewID generates a fresh ULID-based ID for anonymous tasks.
func NewID() ID {
	return ID(ulid.Make().String())
}

// State is the lifecycle state of a task.
type State string

// Task state constants.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state admits no further transition.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// validTransitions maps each state to the set of states it may transition to.
var validTransitions = map[State]map[State]bool{
	StatePending: {
		StateRunning:   true,
		StateFailed:    true,
		StateCancelled: true,
	},
	StateRunning: {
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	},
}

// ValidTransition reports whether transitioning from one state to another is allowed.
func ValidTransition(from, to State) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Snap is a point-in-time view of a single task, as returned by registry
// snapshots.
type Snap struct {
	ID    ID
	State State
}

// Outcome is the terminal report for a finished task, handed to recorders
// and event subscribers. Value is meaningful only when State is completed.
type Outcome[T any] struct {
	ID         ID
	State      State
	Value      T
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall-clock execution time of the task.
func (o Outcome[T]) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}
