package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"overseer/internal/runtime"
)

// execRequest is the JSON body for POST /v1/exec.
type execRequest struct {
	Command   string `json:"command"`
	TimeoutMS int    `json:"timeout_ms"`
}

// execResponse is the JSON response for a one-shot deadline-bounded run.
type execResponse struct {
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// handleExec races a single command against a deadline. Unlike spawned
// tasks, this path never touches the registry or the journal.
func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req execRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Command == "" {
		s.writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	timeout := s.defaultTimeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	start := time.Now()
	output, err := s.runtime.ExecuteWithTimeout(r.Context(), timeout, commandWork(req.Command))
	elapsed := time.Since(start).Milliseconds()

	if errors.Is(err, runtime.ErrTimeout) {
		s.writeJSON(w, http.StatusGatewayTimeout, execResponse{
			Error:      err.Error(),
			DurationMS: elapsed,
		})
		return
	}

	resp := execResponse{Output: output, DurationMS: elapsed}
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
