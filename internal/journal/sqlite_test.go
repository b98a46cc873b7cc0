package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"overseer/internal/task"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func makeTestEntry(state string) *Entry {
	now := time.Now().UTC().Truncate(time.Second)
	started := now.Add(-time.Second)
	return &Entry{
		ID:         string(task.NewID()),
		State:      state,
		Output:     "hello",
		DurationMS: 1000,
		StartedAt:  &started,
		FinishedAt: &now,
		CreatedAt:  now,
	}
}

func TestAppendAndGet(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	e := makeTestEntry("completed")

	if err := j.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := j.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("ID = %q, want %q", got.ID, e.ID)
	}
	if got.State != "completed" {
		t.Errorf("State = %q, want completed", got.State)
	}
	if got.Output != "hello" {
		t.Errorf("Output = %q, want hello", got.Output)
	}
	if got.DurationMS != 1000 {
		t.Errorf("DurationMS = %d, want 1000", got.DurationMS)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("timestamps not round-tripped")
	}
}

func TestGetNotFound(t *testing.T) {
	j := newTestJournal(t)

	_, err := j.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestAppendReplacesSameID(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	e := makeTestEntry("completed")
	if err := j.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	e.Output = "updated"
	if err := j.Append(ctx, e); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	got, err := j.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Output != "updated" {
		t.Errorf("Output = %q, want updated", got.Output)
	}

	_, total, err := j.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1 after replace", total)
	}
}

func TestListPagination(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := makeTestEntry("completed")
		e.Output = fmt.Sprintf("out-%d", i)
		if err := j.Append(ctx, e); err != nil {
			t.Fatalf("Append[%d]: %v", i, err)
		}
	}

	entries, total, err := j.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(entries) != 2 {
		t.Errorf("page size = %d, want 2", len(entries))
	}

	rest, _, err := j.List(ctx, 10, 2)
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("remaining = %d, want 3", len(rest))
	}
}

func TestStats(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := makeTestEntry("completed")
		e.DurationMS = 100
		if err := j.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	failed := makeTestEntry("failed")
	failed.DurationMS = 500
	failed.Error = "boom"
	if err := j.Append(ctx, failed); err != nil {
		t.Fatalf("Append failed entry: %v", err)
	}

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.CountByState["completed"] != 3 {
		t.Errorf("completed = %d, want 3", stats.CountByState["completed"])
	}
	if stats.CountByState["failed"] != 1 {
		t.Errorf("failed = %d, want 1", stats.CountByState["failed"])
	}
	if stats.AvgDurationMS != 200 {
		t.Errorf("AvgDurationMS = %f, want 200", stats.AvgDurationMS)
	}
}

func TestStatsEmpty(t *testing.T) {
	j := newTestJournal(t)

	stats, err := j.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.AvgDurationMS != 0 {
		t.Errorf("AvgDurationMS = %f, want 0", stats.AvgDurationMS)
	}
}
