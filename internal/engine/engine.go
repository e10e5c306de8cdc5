// Package engine runs the refinement state machine: it plans a job,
// profiles the schema, generates and executes SQL through the
// collaborators, and loops through diagnosis and refinement until the
// quality gate passes, the budget runs out, or improvement plateaus.
// Every run terminates at present with a best-effort answer; collaborator
// failures are classified, never propagated.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/leapstack-labs/analyst/internal/budget"
	"github.com/leapstack-labs/analyst/internal/connector"
	"github.com/leapstack-labs/analyst/internal/llm"
	"github.com/leapstack-labs/analyst/internal/quality"
	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

// Default retry ceilings for recoverable diagnoses.
const (
	defaultSyntaxRetries = 2
	defaultEmptyRetries  = 1
	defaultQueryTimeout  = 30 * time.Second
)

// Config holds engine configuration.
type Config struct {
	// LLM generates and summarizes. Required.
	LLM llm.Client
	// Connector executes queries and introspects schemas. Required.
	Connector connector.Connector
	// Quality holds the evaluator tunables (zero values use defaults).
	Quality quality.Config
	// QueryTimeout caps one statement's runtime; the remaining time
	// budget lowers it further per query.
	QueryTimeout time.Duration
	// SyntaxRetries and EmptyRetries bound the recoverable-error loops.
	// Zero means the default.
	SyntaxRetries int
	EmptyRetries  int
	// Clock is the time source (optional, real clock if nil).
	Clock clockwork.Clock
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
	// Observer, when set, receives every appended execution step. Used
	// for progress streaming; called from the job's own goroutine.
	Observer func(state *core.AnalystState, step core.ExecutionStep)
}

// Engine orchestrates analysis jobs. One Engine serves many concurrent
// jobs; per-job state lives in the run, never on the Engine.
type Engine struct {
	llm       llm.Client
	connector connector.Connector
	evaluator *quality.Evaluator
	clock     clockwork.Clock
	logger    *slog.Logger

	queryTimeout time.Duration
	caps         Caps
	observer     func(state *core.AnalystState, step core.ExecutionStep)
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("engine: LLM client is required")
	}
	if cfg.Connector == nil {
		return nil, fmt.Errorf("engine: connector is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	caps := Caps{Syntax: cfg.SyntaxRetries, Empty: cfg.EmptyRetries}
	if caps.Syntax <= 0 {
		caps.Syntax = defaultSyntaxRetries
	}
	if caps.Empty <= 0 {
		caps.Empty = defaultEmptyRetries
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Engine{
		llm:          cfg.LLM,
		connector:    cfg.Connector,
		evaluator:    quality.New(cfg.Quality, logger),
		clock:        clock,
		logger:       logger,
		queryTimeout: timeout,
		caps:         caps,
		observer:     cfg.Observer,
	}, nil
}

// Run executes one job to completion. Configuration problems (empty
// question, unknown dialect, malformed budget) reject the job with an
// error before any step runs; an accepted job always terminates at
// present and never returns an error.
//
// Cancellation is cooperative: a cancelled context is noticed between
// nodes and routes the job to present with a cancelled marker.
func (e *Engine) Run(ctx context.Context, jobID string, spec core.QuerySpec) (*core.AnalystState, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("rejecting job: %w", err)
	}
	caps, err := dialect.Get(spec.Dialect)
	if err != nil {
		return nil, fmt.Errorf("rejecting job: %w", err)
	}

	state := core.NewAnalystState(jobID, spec)
	r := &run{
		engine:  e,
		state:   state,
		tracker: budget.New(spec.Budget, e.clock, e.logger),
		caps:    caps,
	}

	e.logger.Info("job started",
		"job_id", jobID,
		"dialect", spec.Dialect,
		"profile", spec.ValidationProfile,
		"max_queries", spec.Budget.MaxQueries,
		"max_seconds", spec.Budget.MaxSeconds)

	node := core.NodePlan
	for {
		if ctx.Err() != nil && node != core.NodePresent {
			state.Cancelled = true
			e.logger.Info("job cancelled", "job_id", jobID, "at", node)
			node = core.NodePresent
		}

		r.exec(ctx, node)
		if node == core.NodePresent {
			break
		}

		if r.override != "" {
			node = r.override
			r.override = ""
			continue
		}
		next := Next(node, state, e.caps)
		// Wall-clock budget can expire inside any node; gate the two
		// consuming nodes here so no query is ever issued past the cap.
		if (next == core.NodeMVQ || next == core.NodeRefine) && !r.tracker.Remaining() {
			next = core.NodePresent
		}
		node = next
	}

	e.logger.Info("job finished",
		"job_id", jobID,
		"passed", state.FinalQuality != nil && state.FinalQuality.Passed,
		"iterations", state.Iteration,
		"queries_used", state.Budget.QueriesUsed,
		"cancelled", state.Cancelled)
	return state, nil
}
