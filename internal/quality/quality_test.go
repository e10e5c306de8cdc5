package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func resultOf(columns []string, rows ...[]any) *core.Result {
	return &core.Result{Columns: columns, Rows: rows, RowCount: len(rows)}
}

func stateWith(profile core.ValidationProfile, res *core.Result) *core.AnalystState {
	return &core.AnalystState{
		JobID: "job-1",
		Spec: core.QuerySpec{
			Question:          "revenue by region",
			Dialect:           core.DialectDuckDB,
			ValidationProfile: profile,
		},
		LastResult: res,
	}
}

func TestEvaluate_CleanResultPasses(t *testing.T) {
	res := resultOf([]string{"region", "total"},
		[]any{"emea", float64(120)},
		[]any{"apac", float64(80)},
	)
	state := stateWith(core.ProfileBalanced, res)
	state.CrossChecks = map[string]*core.Result{
		core.CrossCheckReconciliation: resultOf([]string{"total"}, []any{float64(200)}),
	}

	report := New(DefaultConfig(), nil).Evaluate(state)

	assert.True(t, report.Passed, "notes: %v", report.Notes)
	assert.GreaterOrEqual(t, report.Score, Threshold(core.ProfileBalanced))

	recon, ok := report.Gate(core.GateReconciliation)
	require.True(t, ok)
	assert.Equal(t, 1.0, recon.Score)
	assert.True(t, recon.Passed)
}

func TestEvaluate_Idempotent(t *testing.T) {
	res := resultOf([]string{"region", "total"},
		[]any{"emea", float64(120)},
		[]any{"apac", float64(80)},
	)
	state := stateWith(core.ProfileBalanced, res)
	state.QualityScores = []float64{0.40}

	ev := New(DefaultConfig(), nil)
	first := ev.Evaluate(state)
	second := ev.Evaluate(state)

	assert.Equal(t, first, second)
	assert.Equal(t, []float64{0.40}, state.QualityScores, "evaluate must not mutate state")
}

func TestEvaluate_EmptyResultScoresLow(t *testing.T) {
	state := stateWith(core.ProfileFast, resultOf([]string{"n"}))
	report := New(DefaultConfig(), nil).Evaluate(state)

	assert.False(t, report.Passed)
	cov, ok := report.Gate(core.GateDataCoverage)
	require.True(t, ok)
	assert.Equal(t, 0.0, cov.Score)
}

func TestEvaluate_ReconciliationMismatch(t *testing.T) {
	res := resultOf([]string{"total"}, []any{float64(100)})
	state := stateWith(core.ProfileBalanced, res)
	state.CrossChecks = map[string]*core.Result{
		// 25% off the primary aggregate.
		core.CrossCheckReconciliation: resultOf([]string{"total"}, []any{float64(75)}),
	}

	report := New(DefaultConfig(), nil).Evaluate(state)

	recon, ok := report.Gate(core.GateReconciliation)
	require.True(t, ok)
	assert.False(t, recon.Passed)
	assert.InDelta(t, 0.75, recon.Score, 1e-9)
	assert.NotEmpty(t, recon.Message)
}

func TestEvaluate_ReconciliationWithinTolerance(t *testing.T) {
	res := resultOf([]string{"total"}, []any{float64(1000)})
	state := stateWith(core.ProfileBalanced, res)
	state.CrossChecks = map[string]*core.Result{
		core.CrossCheckReconciliation: resultOf([]string{"total"}, []any{float64(1005)}),
	}

	report := New(DefaultConfig(), nil).Evaluate(state)
	recon, _ := report.Gate(core.GateReconciliation)
	assert.Equal(t, 1.0, recon.Score)
}

func TestEvaluate_DuplicateKeysScoreZero(t *testing.T) {
	res := resultOf([]string{"region", "total"},
		[]any{"emea", float64(120)},
		[]any{"emea", float64(80)},
	)
	state := stateWith(core.ProfileBalanced, res)
	state.Spec.KeyColumn = "region"

	report := New(DefaultConfig(), nil).Evaluate(state)

	uk, ok := report.Gate(core.GateUniqueKeys)
	require.True(t, ok)
	assert.Equal(t, 0.0, uk.Score)
	assert.False(t, uk.Passed)
	assert.Contains(t, uk.Message, "duplicate key")
}

func TestEvaluate_StrictHardFloor(t *testing.T) {
	// Reconciliation lands under the 0.5 floor, which forces a strict
	// failure regardless of the composite.
	res := resultOf([]string{"region", "total"},
		[]any{"emea", float64(100)},
		[]any{"apac", float64(100)},
	)
	state := stateWith(core.ProfileStrict, res)
	state.CrossChecks = map[string]*core.Result{
		// 60% off: score = 0.4, below the floor.
		core.CrossCheckReconciliation: resultOf([]string{"total"}, []any{float64(500)}),
		core.CrossCheckStability:      resultOf([]string{"total"}, []any{float64(200)}),
	}

	report := New(DefaultConfig(), nil).Evaluate(state)

	recon, _ := report.Gate(core.GateReconciliation)
	require.Less(t, recon.Score, 0.5)
	assert.False(t, report.Passed)
}

func TestEvaluate_StabilityNeutralWithoutWindow(t *testing.T) {
	res := resultOf([]string{"total"}, []any{float64(10)})
	state := stateWith(core.ProfileBalanced, res)

	report := New(DefaultConfig(), nil).Evaluate(state)

	stab, ok := report.Gate(core.GateStability)
	require.True(t, ok)
	assert.Equal(t, 0.5, stab.Score)
	assert.Contains(t, report.Notes, "no comparison window for stability check")
}

func TestPlateau(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   bool
	}{
		{"improvement below epsilon", []float64{0.60, 0.61}, true},
		{"clear improvement", []float64{0.60, 0.70}, false},
		{"regression", []float64{0.70, 0.60}, true},
		{"single score", []float64{0.60}, false},
		{"no scores", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plateau(tt.scores, 0.02))
		})
	}
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 0.55, Threshold(core.ProfileFast))
	assert.Equal(t, 0.70, Threshold(core.ProfileBalanced))
	assert.Equal(t, 0.85, Threshold(core.ProfileStrict))
	assert.Equal(t, 0.70, Threshold(core.ValidationProfile("bogus")))
}
