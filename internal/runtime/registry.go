package runtime

import (
	"fmt"
	"sync"
	"time"

	"overseer/internal/task"
)

// record is the per-task state container. Owned exclusively by the Registry;
// callers only ever see copies.
type record[T any] struct {
	id         task.ID
	state      task.State
	value      T
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// Registry is a synchronized mapping from task ID to task record. Register is
// an atomic insert-if-absent, so two concurrent Spawn calls for the same ID
// cannot both succeed. Waiters block on the channel returned by Changed
// instead of polling.
type Registry[T any] struct {
	mu      sync.Mutex
	records map[task.ID]*record[T]
	order   []task.ID
	changed chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		records: make(map[task.ID]*record[T]),
		changed: make(chan struct{}),
	}
}

// Register inserts a new record in the pending state. It fails with
// ErrDuplicateID if the ID is already present, leaving the existing record
// untouched.
func (r *Registry[T]) Register(id task.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.records[id] = &record[T]{id: id, state: task.StatePending}
	r.order = append(r.order, id)
	return nil
}

// Transition moves a record to a non-terminal state, validating the move
// against the task state machine. Stamps the start time on entry to running.
func (r *Registry[T]) Transition(id task.ID, to task.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	if !task.ValidTransition(rec.state, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, rec.state, to)
	}
	rec.state = to
	if to == task.StateRunning {
		rec.startedAt = time.Now().UTC()
	}
	return nil
}

// Resolve moves a record to a terminal state, recording the task's value or
// error, and wakes every waiter.
func (r *Registry[T]) Resolve(id task.ID, to task.State, value T, err error) error {
	if !to.Terminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, to)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	if !task.ValidTransition(rec.state, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, rec.state, to)
	}
	rec.state = to
	rec.value = value
	rec.err = err
	rec.finishedAt = time.Now().UTC()

	// Wake all waiters by retiring the current generation channel.
	close(r.changed)
	r.changed = make(chan struct{})
	return nil
}

// Get returns a copy of the task's current outcome. For non-terminal tasks
// only ID, State, and StartedAt are meaningful.
func (r *Registry[T]) Get(id task.ID) (task.Outcome[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return task.Outcome[T]{}, false
	}
	return task.Outcome[T]{
		ID:         rec.id,
		State:      rec.state,
		Value:      rec.value,
		Err:        rec.err,
		StartedAt:  rec.startedAt,
		FinishedAt: rec.finishedAt,
	}, true
}

// Snapshot returns the (ID, State) pairs of every registered task in
// insertion order. Waiters use it to decide completion without holding the
// lock across blocking operations.
func (r *Registry[T]) Snapshot() []task.Snap {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]task.Snap, len(r.order))
	for i, id := range r.order {
		snaps[i] = task.Snap{ID: id, State: r.records[id].state}
	}
	return snaps
}

// Len returns the number of registered tasks.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Changed returns a channel that is closed on the next terminal transition.
// Callers must obtain the channel before re-checking state to avoid a missed
// wakeup.
func (r *Registry[T]) Changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}
