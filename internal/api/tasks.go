package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"overseer/internal/journal"
	"overseer/internal/runtime"
	"overseer/internal/task"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// createTaskRequest is the JSON body for POST /v1/tasks.
type createTaskRequest struct {
	ID       string `json:"id"`
	Command  string `json:"command"`
	TimeoutS *int   `json:"timeout_s"`
}

// taskResponse is the JSON view of a task's current state.
type taskResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// listTasksResponse wraps the paginated history response.
type listTasksResponse struct {
	Tasks  []*journal.Entry `json:"tasks"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// commandWork builds a unit of work that runs command under /bin/sh and
// yields its combined output.
func commandWork(command string) runtime.Work[string] {
	return func(ctx context.Context) (string, error) {
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
		out, err := cmd.CombinedOutput()
		if ctx.Err() != nil {
			return string(out), fmt.Errorf("command interrupted: %w", ctx.Err())
		}
		if err != nil {
			return string(out), fmt.Errorf("command failed: %w", err)
		}
		return string(out), nil
	}
}

// withTimeout bounds a unit of work with its own deadline.
func withTimeout(work runtime.Work[string], d time.Duration) runtime.Work[string] {
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return work(ctx)
	}
}

func (s *Server) taskTimeout(timeoutS *int) time.Duration {
	if timeoutS != nil && *timeoutS > 0 {
		return time.Duration(*timeoutS) * time.Second
	}
	return s.defaultTimeout
}

func (s *Server) handleSpawnTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Command == "" {
		s.writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	id := task.ID(req.ID)
	if id == "" {
		id = task.NewID()
	}

	work := withTimeout(commandWork(req.Command), s.taskTimeout(req.TimeoutS))
	if err := s.runtime.Spawn(id, work); err != nil {
		if errors.Is(err, runtime.ErrDuplicateID) {
			s.writeError(w, http.StatusConflict, fmt.Sprintf("task %s is already registered", id))
			return
		}
		s.logger.Error("spawn task", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to spawn task")
		return
	}

	s.writeJSON(w, http.StatusAccepted, taskResponse{
		ID:    string(id),
		State: string(task.StatePending),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Live registry first; the journal only knows terminal outcomes.
	if out, ok := s.runtime.Get(task.ID(id)); ok {
		s.writeJSON(w, http.StatusOK, outcomeResponse(out))
		return
	}

	entry, err := s.journal.Get(r.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		s.logger.Error("get task outcome", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := s.journal.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list tasks", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	if entries == nil {
		entries = []*journal.Entry{}
	}

	s.writeJSON(w, http.StatusOK, listTasksResponse{
		Tasks:  entries,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// waitResponse is the JSON response for POST /v1/tasks/wait.
type waitResponse struct {
	OK       bool          `json:"ok"`
	Failures []waitFailure `json:"failures,omitempty"`
}

type waitFailure struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

func (s *Server) handleWaitAll(w http.ResponseWriter, r *http.Request) {
	err := s.runtime.WaitAll(r.Context())
	if err == nil {
		s.writeJSON(w, http.StatusOK, waitResponse{OK: true})
		return
	}

	var agg *runtime.AggregateError
	if errors.As(err, &agg) {
		failures := make([]waitFailure, len(agg.Failures))
		for i, f := range agg.Failures {
			failures[i] = waitFailure{TaskID: string(f.ID), Error: f.Err.Error()}
		}
		s.writeJSON(w, http.StatusOK, waitResponse{OK: false, Failures: failures})
		return
	}

	// Client went away or the request context was cancelled.
	s.logger.Error("wait all", "error", err)
	s.writeError(w, http.StatusRequestTimeout, "wait interrupted")
}

// batchRequest is the JSON body for POST /v1/tasks/batch.
type batchRequest struct {
	Commands []string `json:"commands"`
	TimeoutS *int     `json:"timeout_s"`
}

// batchResult is one slot in the ordered batch response.
type batchResult struct {
	Index  int    `json:"index"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.Commands) == 0 {
		s.writeError(w, http.StatusBadRequest, "commands is required")
		return
	}

	timeout := s.taskTimeout(req.TimeoutS)
	works := make([]runtime.Work[string], len(req.Commands))
	for i, command := range req.Commands {
		works[i] = withTimeout(commandWork(command), timeout)
	}

	results, err := s.runtime.Parallel(r.Context(), works)
	if err != nil {
		s.logger.Error("batch tasks", "error", err)
		s.writeError(w, http.StatusRequestTimeout, "batch interrupted")
		return
	}

	out := make([]batchResult, len(results))
	for i, res := range results {
		out[i] = batchResult{Index: i, Output: res.Value}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// outcomeResponse converts a live registry outcome to its JSON view.
func outcomeResponse(out task.Outcome[string]) taskResponse {
	resp := taskResponse{
		ID:     string(out.ID),
		State:  string(out.State),
		Output: out.Value,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	if !out.StartedAt.IsZero() {
		resp.StartedAt = out.StartedAt.Format(time.RFC3339)
	}
	if !out.FinishedAt.IsZero() {
		resp.FinishedAt = out.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
