// Package budget enforces the per-job resource budget: a cap on query
// executions and a wall-clock cap measured from job start.
package budget

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// Decision is the outcome of one consumption attempt.
type Decision int

const (
	// Allowed means the consumption was admitted and counted.
	Allowed Decision = iota
	// Exhausted means the budget cannot admit the consumption. The
	// orchestrator treats this as a forced transition to present, never
	// a failure.
	Exhausted
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "exhausted"
}

// Tracker tracks budget consumption for one job run. Counters are
// monotonic and never decremented. Not safe for concurrent use; each job
// owns its tracker exclusively.
type Tracker struct {
	budget core.Budget
	clock  clockwork.Clock

	queriesUsed int
	logger      *slog.Logger
	startedAt   int64
}

// New creates a tracker for the given budget, anchored at the clock's
// current time. A nil logger discards output.
func New(b core.Budget, clock clockwork.Clock, logger *slog.Logger) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		budget:    b,
		clock:     clock,
		logger:    logger,
		startedAt: clock.Now().UnixNano(),
	}
}

// Elapsed returns wall-clock seconds since job start.
func (t *Tracker) Elapsed() float64 {
	return float64(t.clock.Now().UnixNano()-t.startedAt) / 1e9
}

// QueriesUsed returns the number of admitted query consumptions.
func (t *Tracker) QueriesUsed() int {
	return t.queriesUsed
}

// State snapshots the consumed totals for the audit trace.
func (t *Tracker) State() core.BudgetState {
	return core.BudgetState{
		QueriesUsed: t.queriesUsed,
		SecondsUsed: t.Elapsed(),
	}
}

// TryConsume admits one unit of work if the budget allows it. When
// oneQuery is true the query counter is incremented, but only on Allowed;
// an Exhausted attempt leaves the counters untouched so queries_used never
// exceeds the cap, even transiently. The wall-clock check uses elapsed
// time at the moment of the call.
func (t *Tracker) TryConsume(oneQuery bool) Decision {
	elapsed := t.Elapsed()
	if elapsed > float64(t.budget.MaxSeconds) {
		t.logger.Debug("budget exhausted",
			"reason", "seconds",
			"seconds_used", elapsed,
			"max_seconds", t.budget.MaxSeconds)
		return Exhausted
	}
	if oneQuery {
		if t.queriesUsed+1 > t.budget.MaxQueries {
			t.logger.Debug("budget exhausted",
				"reason", "queries",
				"queries_used", t.queriesUsed,
				"max_queries", t.budget.MaxQueries)
			return Exhausted
		}
		t.queriesUsed++
	}
	t.logger.Debug("budget consumed",
		"queries_used", t.queriesUsed,
		"seconds_used", elapsed)
	return Allowed
}

// Remaining reports whether any budget headroom exists without consuming.
func (t *Tracker) Remaining() bool {
	return t.queriesUsed < t.budget.MaxQueries &&
		t.Elapsed() <= float64(t.budget.MaxSeconds)
}
