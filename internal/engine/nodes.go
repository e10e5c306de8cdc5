package engine

// nodes.go - entry actions, one per state machine node. Each visit
// appends exactly one execution step; facts that routing depends on are
// recorded in state before the transition function runs.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/analyst/internal/budget"
	"github.com/leapstack-labs/analyst/internal/diagnose"
	"github.com/leapstack-labs/analyst/internal/llm"
	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

// run is the per-job working set. It is owned by one goroutine for the
// lifetime of the job.
type run struct {
	engine  *Engine
	state   *core.AnalystState
	tracker *budget.Tracker
	caps    *dialect.Capabilities

	// lastErr is the live error value behind state.LastError, kept so
	// diagnosis can unwrap it.
	lastErr error
	// override forces the next node, bypassing the transition table.
	// Set when a node discovers mid-visit that the budget is gone.
	override core.Node
}

func (r *run) exec(ctx context.Context, node core.Node) {
	started := time.Now().UTC()
	var step *core.ExecutionStep
	switch node {
	case core.NodePlan:
		step = r.plan(started)
	case core.NodeProfile:
		step = r.profile(ctx, started)
	case core.NodeMVQ:
		step = r.mvq(ctx, started)
	case core.NodeDiagnose:
		step = r.diagnoseNode(started)
	case core.NodeRefine:
		step = r.refine(ctx, started)
	case core.NodeTransform:
		step = r.transform(ctx, started)
	case core.NodeValidate:
		step = r.validate(ctx, started)
	case core.NodePresent:
		step = r.present(started)
	}
	if obs := r.engine.observer; obs != nil && step != nil {
		obs(r.state, *step)
	}
}

func (r *run) plan(started time.Time) *core.ExecutionStep {
	step := r.state.AddStep(core.NodePlan, core.StepCompleted, started)
	step.Meta = map[string]any{
		"dialect":     string(r.caps.Name),
		"profile":     string(r.state.Spec.ValidationProfile),
		"max_queries": r.state.Spec.Budget.MaxQueries,
		"max_seconds": r.state.Spec.Budget.MaxSeconds,
	}
	return step
}

func (r *run) profile(ctx context.Context, started time.Time) *core.ExecutionStep {
	schema, err := r.engine.connector.IntrospectSchema(ctx)
	if err != nil {
		// SQL generation degrades gracefully without a schema; the
		// model is told it is unavailable.
		r.engine.logger.Warn("schema introspection failed",
			"job_id", r.state.JobID, "error", err)
		step := r.state.AddStep(core.NodeProfile, core.StepFailed, started)
		step.Error = err.Error()
		return step
	}
	r.state.SchemaProfile = schema
	step := r.state.AddStep(core.NodeProfile, core.StepCompleted, started)
	step.Meta = map[string]any{"tables": len(schema.Tables)}
	return step
}

func (r *run) mvq(ctx context.Context, started time.Time) *core.ExecutionStep {
	if r.tracker.TryConsume(true) == budget.Exhausted {
		r.syncBudget()
		r.override = core.NodePresent
		step := r.state.AddStep(core.NodeMVQ, core.StepSkipped, started)
		step.Meta = map[string]any{"reason": "budget_exhausted"}
		return step
	}
	r.syncBudget()

	// A fresh candidate arrives from refine; only the first visit (or a
	// visit after a failed refinement) generates here.
	if r.state.SQLCandidate == "" {
		gen, err := r.engine.llm.GenerateSQL(ctx, r.generateRequest())
		if err != nil {
			r.fail(err)
			step := r.state.AddStep(core.NodeMVQ, core.StepFailed, started)
			step.Error = err.Error()
			return step
		}
		r.state.SQLCandidate = gen.SQL
	}

	res, err := r.engine.connector.Execute(ctx, r.state.SQLCandidate, r.statementTimeout())
	if err != nil {
		r.fail(err)
		step := r.state.AddStep(core.NodeMVQ, core.StepFailed, started)
		step.SQL = r.state.SQLCandidate
		step.Error = err.Error()
		return step
	}
	r.state.LastResult = res
	r.state.LastError = ""
	r.lastErr = nil

	step := r.state.AddStep(core.NodeMVQ, core.StepCompleted, started)
	step.SQL = res.SQL
	step.RowCount = res.RowCount
	return step
}

func (r *run) diagnoseNode(started time.Time) *core.ExecutionStep {
	d := diagnose.Classify(r.state.Spec.Dialect, r.state.LastResult, r.lastErr)
	r.state.AddDiagnosis(d)

	step := r.state.AddStep(core.NodeDiagnose, core.StepCompleted, started)
	step.Meta = map[string]any{
		"kind":        string(d.Kind),
		"recoverable": d.Recoverable,
	}
	if d.Hint != "" {
		step.Meta["hint"] = d.Hint
	}
	return step
}

func (r *run) refine(ctx context.Context, started time.Time) *core.ExecutionStep {
	r.state.Iteration++

	gen, err := r.engine.llm.GenerateSQL(ctx, r.refineRequest())
	if err != nil {
		// The stale candidate stays in place; the next mvq visit
		// re-executes it and diagnosis consumes another retry slot.
		r.engine.logger.Warn("refinement failed",
			"job_id", r.state.JobID, "iteration", r.state.Iteration, "error", err)
		step := r.state.AddStep(core.NodeRefine, core.StepFailed, started)
		step.Error = err.Error()
		return step
	}
	r.state.SQLCandidate = gen.SQL

	step := r.state.AddStep(core.NodeRefine, core.StepCompleted, started)
	step.SQL = gen.SQL
	if gen.WhatChanged != "" {
		step.Meta = map[string]any{"what_changed": gen.WhatChanged}
	}
	return step
}

func (r *run) transform(ctx context.Context, started time.Time) *core.ExecutionStep {
	r.state.Shaped = r.state.LastResult.Summarize()

	if !r.state.HasData() {
		r.state.Answer = "No matching data was found for this question."
		step := r.state.AddStep(core.NodeTransform, core.StepCompleted, started)
		step.Meta = map[string]any{"no_data": true}
		return step
	}

	answer, err := r.engine.llm.Summarize(ctx, llm.SummarizeRequest{
		Question: r.state.Spec.Question,
		SQL:      r.state.SQLCandidate,
		Summary:  *r.state.Shaped,
	})
	if err != nil {
		// Present falls back to a canned answer.
		r.engine.logger.Warn("summarize failed", "job_id", r.state.JobID, "error", err)
		step := r.state.AddStep(core.NodeTransform, core.StepFailed, started)
		step.Error = err.Error()
		return step
	}
	r.state.Answer = strings.TrimSpace(answer)

	step := r.state.AddStep(core.NodeTransform, core.StepCompleted, started)
	step.Meta = map[string]any{"rows": r.state.Shaped.Rows, "columns": r.state.Shaped.Columns}
	return step
}

func (r *run) validate(ctx context.Context, started time.Time) *core.ExecutionStep {
	r.runCrossChecks(ctx)

	report := r.engine.evaluator.Evaluate(r.state)
	r.state.QualityScores = append(r.state.QualityScores, report.Score)
	r.state.FinalQuality = &report

	step := r.state.AddStep(core.NodeValidate, core.StepCompleted, started)
	step.Meta = map[string]any{
		"score":   report.Score,
		"passed":  report.Passed,
		"plateau": report.Plateau,
	}
	return step
}

func (r *run) present(started time.Time) *core.ExecutionStep {
	state := r.state

	// The payload always carries a quality verdict, even when the run
	// never reached validate.
	if state.FinalQuality == nil {
		report := r.engine.evaluator.Evaluate(state)
		state.FinalQuality = &report
	}

	if state.Answer == "" {
		switch {
		case state.Cancelled:
			state.Answer = "The analysis was cancelled before completing."
		default:
			state.Answer = "Unable to produce a reliable result."
			if d, ok := state.LastDiagnosis(); ok && d.Hint != "" {
				state.Answer = fmt.Sprintf("Unable to produce a reliable result: %s.", d.Hint)
			}
		}
	}

	if state.HasData() && state.Shaped != nil {
		state.AddArtifact(core.Artifact{
			ID:    uuid.NewString(),
			Kind:  core.ArtifactTable,
			Title: "Result",
			Content: map[string]any{
				"columns":   state.Shaped.ColumnName,
				"rows":      state.Shaped.Sample,
				"row_count": state.Shaped.Rows,
			},
		})
	}
	if state.SQLCandidate != "" {
		state.AddArtifact(core.Artifact{
			ID:      uuid.NewString(),
			Kind:    core.ArtifactSQL,
			Title:   "Final SQL",
			Content: map[string]any{"sql": state.SQLCandidate, "dialect": string(state.Spec.Dialect)},
		})
	}
	state.AddArtifact(core.Artifact{
		ID:    uuid.NewString(),
		Kind:  core.ArtifactLog,
		Title: "Execution log",
		Content: map[string]any{
			"steps":        len(state.Steps),
			"iterations":   state.Iteration,
			"queries_used": state.Budget.QueriesUsed,
			"cancelled":    state.Cancelled,
		},
	})

	state.CompletedAt = time.Now().UTC()
	step := state.AddStep(core.NodePresent, core.StepCompleted, started)
	step.Meta = map[string]any{
		"passed":    state.FinalQuality.Passed,
		"artifacts": len(state.Artifacts),
	}
	return step
}

// runCrossChecks gathers the secondary result sets the evaluator scores
// against. Each check costs one budget query; an exhausted budget or a
// failed check simply leaves the evaluator without that input.
func (r *run) runCrossChecks(ctx context.Context) {
	if !r.state.HasData() || r.state.SQLCandidate == "" {
		return
	}

	if sql, ok := r.reconciliationSQL(); ok {
		r.crossCheck(ctx, core.CrossCheckReconciliation, sql)
	}
	// Stability re-executes the candidate when a comparison window was
	// declared: a stable source yields the same aggregate twice.
	if r.state.Spec.CompareWindow() != "" {
		r.crossCheck(ctx, core.CrossCheckStability, r.state.SQLCandidate)
	}
}

func (r *run) crossCheck(ctx context.Context, key, sql string) {
	delete(r.state.CrossChecks, key)
	if r.tracker.TryConsume(true) == budget.Exhausted {
		r.syncBudget()
		return
	}
	r.syncBudget()
	res, err := r.engine.connector.Execute(ctx, sql, r.statementTimeout())
	if err != nil {
		r.engine.logger.Debug("cross-check failed",
			"job_id", r.state.JobID, "check", key, "error", err)
		return
	}
	r.state.CrossChecks[key] = res
}

// reconciliationSQL wraps the candidate so the database itself recomputes
// the total of the first numeric column.
func (r *run) reconciliationSQL() (string, bool) {
	res := r.state.LastResult
	col, ok := firstNumericColumn(res)
	if !ok {
		return "", false
	}
	inner := strings.TrimRight(strings.TrimSpace(r.state.SQLCandidate), ";")
	quoted := r.caps.Identifiers.QuoteIdentifier(col)
	return fmt.Sprintf("SELECT SUM(%s) FROM (%s) AS recon_src", quoted, inner), true
}

func firstNumericColumn(res *core.Result) (string, bool) {
	if res == nil || len(res.Rows) == 0 {
		return "", false
	}
	for i, name := range res.Columns {
		for _, row := range res.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			switch row[i].(type) {
			case int, int32, int64, uint64, float32, float64:
				return name, true
			}
			break
		}
	}
	return "", false
}

func (r *run) generateRequest() llm.GenerateRequest {
	spec := r.state.Spec
	return llm.GenerateRequest{
		Question:   spec.Question,
		Caps:       r.caps,
		Schema:     r.state.SchemaProfile,
		TimeWindow: spec.TimeWindow,
		Grain:      spec.Grain,
		Filters:    spec.Filters,
	}
}

func (r *run) refineRequest() llm.GenerateRequest {
	req := r.generateRequest()
	req.PreviousSQL = r.state.SQLCandidate
	req.Hints = r.state.Hints()
	// An unpassed quality report is feedback too.
	if q := r.state.FinalQuality; q != nil && !q.Passed {
		req.Hints = append(req.Hints, q.Notes...)
	}
	return req
}

// statementTimeout is the per-query ceiling, lowered to whatever remains
// of the wall-clock budget.
func (r *run) statementTimeout() time.Duration {
	remaining := time.Duration(float64(r.state.Spec.Budget.MaxSeconds)-r.tracker.Elapsed()) * time.Second
	if remaining <= 0 {
		remaining = time.Second
	}
	if remaining < r.engine.queryTimeout {
		return remaining
	}
	return r.engine.queryTimeout
}

func (r *run) fail(err error) {
	r.state.LastError = err.Error()
	r.state.LastResult = nil
	r.lastErr = err
}

func (r *run) syncBudget() {
	r.state.Budget = r.tracker.State()
}
