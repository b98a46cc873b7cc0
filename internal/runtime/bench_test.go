package runtime_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"overseer/internal/runtime"
	"overseer/internal/task"
)

var benchLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func instantWork(ctx context.Context) (string, error) {
	return "ok", nil
}

func BenchmarkSpawnWaitAll(b *testing.B) {
	for _, n := range []int{10, 100, 500} {
		b.Run(fmt.Sprintf("tasks-%d", n), func(b *testing.B) {
			for b.Loop() {
				rt := runtime.New[string](benchLogger)
				for i := 0; i < n; i++ {
					id := task.ID(fmt.Sprintf("bench-%d", i))
					if err := rt.Spawn(id, instantWork); err != nil {
						b.Fatalf("Spawn: %v", err)
					}
				}
				if err := rt.WaitAll(context.Background()); err != nil {
					b.Fatalf("WaitAll: %v", err)
				}
				rt.Close()
			}
		})
	}
}

func BenchmarkSpawnSubmissionLatency(b *testing.B) {
	rt := runtime.New[string](benchLogger)
	defer rt.Close()

	i := 0
	for b.Loop() {
		id := task.ID(fmt.Sprintf("submit-%d", i))
		i++
		if err := rt.Spawn(id, instantWork); err != nil {
			b.Fatalf("Spawn: %v", err)
		}
	}
	b.StopTimer()
	_ = rt.WaitAll(context.Background())
}

func BenchmarkParallel(b *testing.B) {
	for _, n := range []int{10, 100, 500} {
		b.Run(fmt.Sprintf("tasks-%d", n), func(b *testing.B) {
			works := make([]runtime.Work[string], n)
			for i := range works {
				works[i] = instantWork
			}
			for b.Loop() {
				rt := runtime.New[string](benchLogger)
				if _, err := rt.Parallel(context.Background(), works); err != nil {
					b.Fatalf("Parallel: %v", err)
				}
				rt.Close()
			}
		})
	}
}

func BenchmarkExecuteWithTimeout(b *testing.B) {
	rt := runtime.New[string](benchLogger)
	defer rt.Close()

	for b.Loop() {
		if _, err := rt.ExecuteWithTimeout(context.Background(), time.Second, instantWork); err != nil {
			b.Fatalf("ExecuteWithTimeout: %v", err)
		}
	}
}
