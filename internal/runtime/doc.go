// Package runtime provides the concurrent task-execution runtime. It accepts
// named units of asynchronous work, runs them on goroutines, lets callers
// wait for completion of one, many, or all outstanding tasks, and enforces
// execution deadlines via context cancellation.
package runtime
