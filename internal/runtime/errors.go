package runtime

import (
	"errors"
	"fmt"
	"strings"

	"overseer/internal/task"
)

// ErrDuplicateID is returned by Spawn when the given ID is already live in
// the registry. The existing registration is left untouched.
var ErrDuplicateID = errors.New("task id already registered")

// ErrUnknownTask is returned when an operation references an ID that was
// never registered.
var ErrUnknownTask = errors.New("unknown task id")

// ErrInvalidTransition is returned when a task state transition is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrTimeout is returned by ExecuteWithTimeout when the deadline elapses
// before the work resolves.
var ErrTimeout = errors.New("deadline elapsed before task completed")

// TaskError wraps the error a single unit of work returned, tagged with the
// originating task ID.
type TaskError struct {
	ID  task.ID
	Err error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.ID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// AggregateError is produced by WaitAll when one or more tracked tasks
// failed. It enumerates every failure, not just the first.
type AggregateError struct {
	Failures []*TaskError
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d task(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual task errors to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// PanicError reports that a unit of work panicked instead of returning. It is
// distinct from an ordinary task error: the work itself terminated
// abnormally, not its business logic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
