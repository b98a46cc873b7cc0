package journal

import (
	"context"
	"log/slog"
	"time"

	"overseer/internal/task"
)

// Recorder adapts a Journal to the runtime's recorder hook: every terminal
// task outcome is appended as an Entry. Append failures are logged, never
// propagated — recording history must not disturb task execution.
type Recorder struct {
	journal Journal
	logger  *slog.Logger
}

// NewRecorder creates a recorder writing outcomes to j.
func NewRecorder(j Journal, logger *slog.Logger) *Recorder {
	return &Recorder{journal: j, logger: logger}
}

// TaskFinished records a terminal outcome.
func (r *Recorder) TaskFinished(o task.Outcome[string]) {
	e := &Entry{
		ID:         string(o.ID),
		State:      string(o.State),
		Output:     o.Value,
		DurationMS: int(o.Duration().Milliseconds()),
		CreatedAt:  time.Now().UTC(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	if !o.StartedAt.IsZero() {
		started := o.StartedAt
		e.StartedAt = &started
	}
	if !o.FinishedAt.IsZero() {
		finished := o.FinishedAt
		e.FinishedAt = &finished
	}

	if err := r.journal.Append(context.Background(), e); err != nil {
		r.logger.Error("failed to record outcome", "task_id", o.ID, "error", err)
	}
}
