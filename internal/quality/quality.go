// Package quality scores a validated result set against five weighted
// gates and decides whether the answer clears the bar for its validation
// profile. Evaluation is a pure function of state: calling it twice on an
// unchanged state produces the same report.
package quality

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// Config holds the evaluator tunables.
type Config struct {
	// ReconTolerance is the relative delta under which the primary
	// aggregate and the reconciliation cross-check are considered equal.
	ReconTolerance float64 `koanf:"recon_tolerance"`
	// PlateauEpsilon is the minimum score improvement between the last
	// two validated attempts. Smaller improvements stop refinement.
	PlateauEpsilon float64 `koanf:"plateau_epsilon"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{ReconTolerance: 0.01, PlateauEpsilon: 0.02}
}

// Thresholds by validation profile. An unrecognized profile evaluates as
// balanced.
const (
	hardFloor = 0.5

	thresholdFast     = 0.55
	thresholdBalanced = 0.70
	thresholdStrict   = 0.85
)

// Threshold returns the composite score a profile requires to pass.
func Threshold(p core.ValidationProfile) float64 {
	switch p {
	case core.ProfileFast:
		return thresholdFast
	case core.ProfileStrict:
		return thresholdStrict
	default:
		return thresholdBalanced
	}
}

// Evaluator computes quality reports.
type Evaluator struct {
	cfg    Config
	logger *slog.Logger
}

// New returns an evaluator. A nil logger discards output. Zero-valued
// tunables fall back to the defaults.
func New(cfg Config, logger *slog.Logger) *Evaluator {
	if cfg.ReconTolerance <= 0 {
		cfg.ReconTolerance = DefaultConfig().ReconTolerance
	}
	if cfg.PlateauEpsilon <= 0 {
		cfg.PlateauEpsilon = DefaultConfig().PlateauEpsilon
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{cfg: cfg, logger: logger}
}

// Evaluate scores the state's current result set. It reads the primary
// result, the cross-check results, and the score history; it never
// mutates state.
func (e *Evaluator) Evaluate(state *core.AnalystState) core.QualityReport {
	var report core.QualityReport

	gates := []core.QualityGate{
		e.dataCoverage(state.LastResult),
		e.reconciliation(state.LastResult, state.CrossChecks[core.CrossCheckReconciliation]),
		e.uniqueKeys(state.LastResult, state.Spec.KeyColumn),
		e.stability(state.LastResult, state.CrossChecks[core.CrossCheckStability]),
		e.unitsTypes(state.LastResult),
	}

	score := 0.0
	for _, g := range gates {
		score += g.Score * g.Weight
		if g.Message != "" {
			report.Notes = append(report.Notes, g.Message)
		}
	}
	// Weighted sums accumulate float dust; keep scores comparable.
	score = math.Round(score*1e9) / 1e9

	passed := score >= Threshold(state.Spec.ValidationProfile)
	if state.Spec.ValidationProfile == core.ProfileStrict {
		for _, name := range []core.GateName{core.GateReconciliation, core.GateUniqueKeys} {
			for _, g := range gates {
				if g.Name == name && g.Score < hardFloor {
					passed = false
					report.Notes = append(report.Notes,
						fmt.Sprintf("%s below strict floor (%.2f < %.2f)", name, g.Score, hardFloor))
				}
			}
		}
	}

	report.Score = score
	report.Passed = passed
	report.Gates = gates
	report.Plateau = Plateau(append(append([]float64(nil), state.QualityScores...), score), e.cfg.PlateauEpsilon)

	e.logger.Debug("quality evaluated",
		"job_id", state.JobID, "score", score, "passed", passed, "plateau", report.Plateau)
	return report
}

// Plateau reports whether the improvement between the last two scores is
// below epsilon. Fewer than two scores never plateau.
func Plateau(scores []float64, epsilon float64) bool {
	if len(scores) < 2 {
		return false
	}
	last, prev := scores[len(scores)-1], scores[len(scores)-2]
	return last-prev < epsilon
}

func (e *Evaluator) dataCoverage(res *core.Result) core.QualityGate {
	g := core.QualityGate{Name: core.GateDataCoverage, Weight: core.GateWeights[core.GateDataCoverage]}
	if res == nil || res.Empty() {
		g.Message = "no rows returned"
		return g
	}
	// Score by the fraction of populated cells so sparse results rank
	// below dense ones.
	total, filled := 0, 0
	for _, row := range res.Rows {
		for _, v := range row {
			total++
			if v != nil {
				filled++
			}
		}
	}
	if total == 0 {
		g.Message = "result has no columns"
		return g
	}
	g.Score = float64(filled) / float64(total)
	g.Passed = g.Score >= hardFloor
	if !g.Passed {
		g.Message = fmt.Sprintf("result is mostly null (%.0f%% populated)", g.Score*100)
	}
	return g
}

func (e *Evaluator) reconciliation(primary, check *core.Result) core.QualityGate {
	g := core.QualityGate{Name: core.GateReconciliation, Weight: core.GateWeights[core.GateReconciliation]}
	if primary == nil || primary.Empty() {
		g.Message = "reconciliation skipped: no primary result"
		return g
	}
	if check == nil || check.Empty() {
		g.Score = hardFloor
		g.Message = "no reconciliation cross-check available"
		return g
	}

	primarySum, ok := aggregate(primary)
	if !ok {
		g.Score = hardFloor
		g.Message = "reconciliation skipped: no numeric column in result"
		return g
	}
	checkSum, ok := aggregate(check)
	if !ok {
		g.Score = hardFloor
		g.Message = "reconciliation skipped: cross-check has no numeric column"
		return g
	}

	delta := relativeDelta(primarySum, checkSum)
	if delta <= e.cfg.ReconTolerance {
		g.Score = 1
		g.Passed = true
		return g
	}
	g.Score = 1 - math.Min(1, delta)
	g.Message = fmt.Sprintf("aggregate differs from cross-check by %.1f%%", delta*100)
	return g
}

func (e *Evaluator) uniqueKeys(res *core.Result, keyColumn string) core.QualityGate {
	g := core.QualityGate{Name: core.GateUniqueKeys, Weight: core.GateWeights[core.GateUniqueKeys]}
	if res == nil || res.Empty() {
		g.Message = "unique-key check skipped: no rows"
		return g
	}

	// Use the declared key column, or infer the first column as the key.
	idx := 0
	if keyColumn != "" {
		idx = res.Column(keyColumn)
		if idx < 0 {
			g.Score = hardFloor
			g.Message = fmt.Sprintf("key column %q not present in result", keyColumn)
			return g
		}
	}

	seen := make(map[string]struct{}, len(res.Rows))
	for _, row := range res.Rows {
		if idx >= len(row) {
			continue
		}
		k := fmt.Sprint(row[idx])
		if _, dup := seen[k]; dup {
			g.Message = fmt.Sprintf("duplicate key value %q in column %q", k, res.Columns[idx])
			return g
		}
		seen[k] = struct{}{}
	}
	g.Score = 1
	g.Passed = true
	return g
}

func (e *Evaluator) stability(primary, alt *core.Result) core.QualityGate {
	g := core.QualityGate{Name: core.GateStability, Weight: core.GateWeights[core.GateStability]}
	if alt == nil || alt.Empty() {
		g.Score = hardFloor
		g.Message = "no comparison window for stability check"
		return g
	}
	primarySum, ok1 := aggregate(primary)
	altSum, ok2 := aggregate(alt)
	if !ok1 || !ok2 {
		g.Score = hardFloor
		g.Message = "stability check skipped: no numeric column"
		return g
	}
	variance := relativeDelta(primarySum, altSum)
	g.Score = 1 - math.Min(1, variance)
	g.Passed = g.Score >= hardFloor
	if !g.Passed {
		g.Message = fmt.Sprintf("result varies %.0f%% across time windows", variance*100)
	}
	return g
}

func (e *Evaluator) unitsTypes(res *core.Result) core.QualityGate {
	g := core.QualityGate{Name: core.GateUnitsTypes, Weight: core.GateWeights[core.GateUnitsTypes]}
	if res == nil || res.Empty() {
		g.Message = "type check skipped: no rows"
		return g
	}

	numericCols, cleanCols := 0, 0
	for col := range res.Columns {
		numeric, clean := 0, 0
		for _, row := range res.Rows {
			if col >= len(row) || row[col] == nil {
				continue
			}
			if _, ok := toFloat(row[col]); ok {
				numeric++
				clean++
			} else if looksNumeric(row[col]) {
				// A numeric-looking string that fails to parse means the
				// driver or the query mangled the value.
				numeric++
			}
		}
		if numeric > 0 && numeric >= len(res.Rows)/2 {
			numericCols++
			if clean == numeric {
				cleanCols++
			}
		}
	}
	if numericCols == 0 {
		g.Score = 1
		g.Passed = true
		return g
	}
	g.Score = float64(cleanCols) / float64(numericCols)
	g.Passed = g.Score >= hardFloor
	if !g.Passed {
		g.Message = "numeric columns contain unparseable values"
	}
	return g
}

// aggregate sums the first numeric column of a result.
func aggregate(res *core.Result) (float64, bool) {
	if res == nil {
		return 0, false
	}
	for col := range res.Columns {
		sum, found := 0.0, false
		for _, row := range res.Rows {
			if col >= len(row) {
				continue
			}
			if f, ok := toFloat(row[col]); ok {
				sum += f
				found = true
			}
		}
		if found {
			return sum, true
		}
	}
	return 0, false
}

func relativeDelta(a, b float64) float64 {
	base := math.Max(math.Abs(a), math.Abs(b))
	if base == 0 {
		return 0
	}
	return math.Abs(a-b) / base
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// looksNumeric catches strings that start like a number but fail a full
// parse, e.g. "1,234.00" or "12.3abc".
func looksNumeric(v any) bool {
	s, ok := v.(string)
	if ok && len(s) > 0 {
		c := s[0]
		return (c >= '0' && c <= '9') || c == '-' || c == '+'
	}
	return false
}
