package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leapstack-labs/analyst/internal/store"
	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

type errorResponse struct {
	Error string `json:"error"`
}

type submitResponse struct {
	JobID  string         `json:"job_id"`
	Status core.JobStatus `json:"status"`
}

type jobResponse struct {
	ID        string          `json:"id"`
	Status    core.JobStatus  `json:"status"`
	Spec      core.QuerySpec  `json:"spec"`
	Result    *core.RunResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type dialectInfo struct {
	Name            core.Dialect `json:"name"`
	WindowFunctions bool         `json:"window_functions"`
	CTE             bool         `json:"cte"`
	Ilike           bool         `json:"ilike"`
	QualifyClause   bool         `json:"qualify_clause"`
	JSONSupport     bool         `json:"json_support"`
	LimitIdiom      string       `json:"limit_idiom,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	out := make([]dialectInfo, 0, 9)
	for _, name := range dialect.List() {
		caps, err := dialect.Get(name)
		if err != nil {
			continue
		}
		out = append(out, dialectInfo{
			Name:            caps.Name,
			WindowFunctions: caps.WindowFunctions,
			CTE:             caps.CTE,
			Ilike:           caps.Ilike,
			QualifyClause:   caps.QualifyClause,
			JSONSupport:     caps.JSONSupport,
			LimitIdiom:      caps.LimitIdiom,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var spec core.QuerySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// Reject bad specs before they reach the queue, so callers get a
	// 400 instead of a failed job.
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := dialect.Get(spec.Dialect); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := uuid.NewString()
	if _, err := s.store.CreateJob(r.Context(), jobID, spec); err != nil {
		s.logger.Error("failed to create job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	s.startJob(jobID, spec)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, Status: core.JobQueued})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context(), 50)
	if err != nil {
		s.logger.Error("failed to list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobResponse(job))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	if job.Status.Terminal() {
		writeError(w, http.StatusConflict, "job already "+string(job.Status))
		return
	}
	// Cancellation is cooperative: the run notices between nodes and
	// finishes through present, so the terminal status lands when the
	// worker goroutine exits.
	if !s.cancelJob(job.ID) {
		// Queued but not yet picked up by a worker. Mark it cancelled
		// directly.
		if err := s.store.CompleteJob(r.Context(), job.ID, core.JobCancelled, nil, ""); err != nil {
			s.logger.Error("failed to cancel queued job", "job_id", job.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	id := chi.URLParam(r, "id")
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
		} else {
			s.logger.Error("failed to load job", "job_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load job")
		}
		return nil, false
	}
	return job, true
}

func toJobResponse(job *store.Job) jobResponse {
	return jobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Spec:      job.Spec,
		Result:    job.Result,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
