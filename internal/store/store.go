// Package store persists submitted jobs and their terminal results in
// SQLite so the API can answer status queries across its lifetime.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// ErrJobNotFound is returned when a job ID has no row.
var ErrJobNotFound = errors.New("job not found")

// Job is one persisted submission. Spec is stored as JSON; Result is set
// only once the job reaches a terminal status.
type Job struct {
	ID        string          `json:"id"`
	Status    core.JobStatus  `json:"status"`
	Spec      core.QuerySpec  `json:"spec"`
	Result    *core.RunResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is the job persistence contract.
type Store interface {
	// CreateJob inserts a queued job for the given spec and returns it.
	CreateJob(ctx context.Context, id string, spec core.QuerySpec) (*Job, error)
	// GetJob fetches one job, ErrJobNotFound when absent.
	GetJob(ctx context.Context, id string) (*Job, error)
	// ListJobs returns the most recent jobs, newest first.
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	// SetStatus moves a job to a non-terminal status.
	SetStatus(ctx context.Context, id string, status core.JobStatus) error
	// CompleteJob records a terminal status with its result or error.
	CompleteJob(ctx context.Context, id string, status core.JobStatus, result *core.RunResult, errMsg string) error
	// Close releases the underlying database.
	Close() error
}
