package runtime

import (
	"context"
	"errors"
	"runtime/debug"
	"time"
)

// ExecuteWithTimeout runs a single unit of work racing a timer of duration d.
// If the work resolves first its result is returned verbatim; if the timer
// elapses first the call returns ErrTimeout. The call does not touch the
// registry.
//
// Cancellation is cooperative: when the deadline fires the work's context is
// cancelled and the caller is unblocked, but work that ignores its context
// keeps running detached and its eventual result is discarded. A zero
// duration normally resolves to ErrTimeout, though work that completes
// synchronously may still win the race.
func (r *Runtime[T]) ExecuteWithTimeout(ctx context.Context, d time.Duration, work Work[T]) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	// Buffered so the work goroutine can always deliver and exit, even after
	// the caller has given up.
	resCh := make(chan Result[T], 1)
	go func() {
		var res Result[T]
		defer func() {
			if p := recover(); p != nil {
				res.Err = &PanicError{Value: p, Stack: debug.Stack()}
			}
			resCh <- res
		}()
		res.Value, res.Err = work(ctx)
	}()

	select {
	case res := <-resCh:
		return res.Value, res.Err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			deadlineTimeoutsTotal.Inc()
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
