// Package journal records terminal task outcomes for history and stats
// reporting. The runtime only ever appends to it; nothing is read back into
// the registry, so task state never survives a process restart.
package journal

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an outcome is not found.
var ErrNotFound = errors.New("outcome not found")

// Entry is a single recorded task outcome.
type Entry struct {
	ID         string     `json:"id"`
	State      string     `json:"state"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMS int        `json:"duration_ms"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Stats holds aggregate execution statistics.
type Stats struct {
	Total         int            `json:"total"`
	CountByState  map[string]int `json:"count_by_state"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Journal defines the persistence operations for task outcomes.
type Journal interface {
	Append(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
