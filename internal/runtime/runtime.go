package runtime

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"overseer/internal/task"
)

// Work is a unit of asynchronous work. It receives the runtime's base
// context, which is cancelled when the runtime is closed; well-behaved work
// should observe it on blocking operations.
type Work[T any] func(ctx context.Context) (T, error)

// Result pairs a task's value with its error for index-ordered collection.
type Result[T any] struct {
	Value T
	Err   error
}

// Recorder receives the terminal outcome of every task executed by a
// Runtime. Implementations must be safe for concurrent use.
type Recorder[T any] interface {
	TaskFinished(outcome task.Outcome[T])
}

// Runtime orchestrates concurrent task execution: it owns the registry,
// dispatches work onto goroutines, and lets callers wait for completion of
// one, many, or all outstanding tasks. A single Runtime may be shared by
// multiple concurrent callers.
type Runtime[T any] struct {
	registry *Registry[T]
	broker   *EventBroker
	logger   *slog.Logger
	recorder Recorder[T]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures a Runtime.
type Option[T any] func(*Runtime[T])

// WithRecorder installs a recorder invoked with every terminal outcome.
func WithRecorder[T any](rec Recorder[T]) Option[T] {
	return func(r *Runtime[T]) {
		r.recorder = rec
	}
}

// New creates a runtime with an empty registry.
func New[T any](logger *slog.Logger, opts ...Option[T]) *Runtime[T] {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime[T]{
		registry: NewRegistry[T](),
		broker:   NewEventBroker(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Broker returns the runtime's event broker for state-change subscription.
func (r *Runtime[T]) Broker() *EventBroker {
	return r.broker
}

// Spawn registers id and dispatches work onto its own goroutine. It returns
// once dispatch is confirmed, not once the work finishes. Reusing a live ID
// fails with ErrDuplicateID and leaves the existing registration untouched.
func (r *Runtime[T]) Spawn(id task.ID, work Work[T]) error {
	if err := r.registry.Register(id); err != nil {
		return err
	}
	tasksSpawnedTotal.Inc()
	r.broker.Publish(Event{TaskID: string(id), State: string(task.StatePending)})

	r.wg.Go(func() {
		r.execute(id, work)
	})
	return nil
}

// execute runs the task lifecycle in a goroutine: pending -> running ->
// completed/failed. A panic inside the work is captured as a PanicError so
// that one task's abnormal termination never disturbs another's record.
func (r *Runtime[T]) execute(id task.ID, work Work[T]) {
	// Close the event stream when execution finishes, regardless of outcome.
	defer r.broker.Close(string(id))

	if err := r.registry.Transition(id, task.StateRunning); err != nil {
		r.logger.Error("failed to transition to running", "task_id", id, "error", err)
		return
	}
	r.broker.Publish(Event{TaskID: string(id), State: string(task.StateRunning)})
	tasksInflight.Inc()

	var (
		value T
		err   error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = &PanicError{Value: p, Stack: debug.Stack()}
			}
		}()
		value, err = work(r.ctx)
	}()
	tasksInflight.Dec()

	var state task.State
	switch {
	case err == nil:
		state = task.StateCompleted
	case errors.Is(err, context.Canceled) && r.ctx.Err() != nil:
		// The runtime was closed and the work gave up on its context.
		state = task.StateCancelled
	default:
		state = task.StateFailed
	}
	if rerr := r.registry.Resolve(id, state, value, err); rerr != nil {
		r.logger.Error("failed to resolve task", "task_id", id, "error", rerr)
		return
	}

	out, _ := r.registry.Get(id)
	tasksFinishedTotal.WithLabelValues(string(state)).Inc()
	taskDurationSeconds.Observe(out.Duration().Seconds())

	ev := Event{TaskID: string(id), State: string(state)}
	if err != nil {
		ev.Error = err.Error()
	}
	r.broker.Publish(ev)

	if r.recorder != nil {
		r.recorder.TaskFinished(out)
	}
}

// WaitAll blocks until every task registered before the call has reached a
// terminal state. It returns nil if none failed, otherwise an
// *AggregateError enumerating every failing task. Tasks spawned during the
// wait are not covered (snapshot-at-call semantics). Calling WaitAll again
// with no new spawns returns the same outcome.
func (r *Runtime[T]) WaitAll(ctx context.Context) error {
	snaps := r.registry.Snapshot()
	ids := make([]task.ID, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	return r.waitIDs(ctx, ids)
}

// waitIDs blocks until every given ID is terminal, waking on registry
// transitions rather than polling. The change channel is obtained before each
// state check so a transition between check and wait cannot be missed.
func (r *Runtime[T]) waitIDs(ctx context.Context, ids []task.ID) error {
	for {
		changed := r.registry.Changed()

		allTerminal := true
		var failures []*TaskError
		for _, id := range ids {
			out, ok := r.registry.Get(id)
			if !ok {
				return ErrUnknownTask
			}
			if !out.State.Terminal() {
				allTerminal = false
				break
			}
			if out.Err != nil {
				failures = append(failures, &TaskError{ID: id, Err: out.Err})
			}
		}
		if allTerminal {
			if len(failures) > 0 {
				return &AggregateError{Failures: failures}
			}
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Parallel spawns one anonymous task per work item, waits for the whole
// batch, and returns results in input order regardless of completion order.
// Individual task errors are reported in their slot, not as a call error.
func (r *Runtime[T]) Parallel(ctx context.Context, works []Work[T]) ([]Result[T], error) {
	ids := make([]task.ID, len(works))
	for i, w := range works {
		id := task.NewID()
		ids[i] = id
		if err := r.Spawn(id, w); err != nil {
			return nil, err
		}
	}

	if err := r.waitIDs(ctx, ids); err != nil {
		var agg *AggregateError
		if !errors.As(err, &agg) {
			return nil, err
		}
		// Per-task failures are surfaced in their result slots below.
	}

	results := make([]Result[T], len(ids))
	for i, id := range ids {
		out, ok := r.registry.Get(id)
		if !ok {
			return nil, ErrUnknownTask
		}
		results[i] = Result[T]{Value: out.Value, Err: out.Err}
	}
	return results, nil
}

// Get returns a copy of the task's current state and, once terminal, its
// value or error.
func (r *Runtime[T]) Get(id task.ID) (task.Outcome[T], bool) {
	return r.registry.Get(id)
}

// Snapshot returns the (ID, State) pairs of every tracked task in
// registration order.
func (r *Runtime[T]) Snapshot() []task.Snap {
	return r.registry.Snapshot()
}

// Len returns the number of tracked tasks.
func (r *Runtime[T]) Len() int {
	return r.registry.Len()
}

// Close cancels the runtime's base context and blocks until all in-flight
// task goroutines finish. A runtime abandoned without Close leaves
// still-running tasks detached until they return on their own.
func (r *Runtime[T]) Close() {
	r.cancel()
	r.wg.Wait()
}
