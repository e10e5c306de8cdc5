package core

// GateName identifies one quality gate.
type GateName string

// The five fixed gates and their composite weights.
const (
	GateDataCoverage   GateName = "data_coverage"
	GateReconciliation GateName = "reconciliation"
	GateUniqueKeys     GateName = "unique_keys"
	GateStability      GateName = "stability"
	GateUnitsTypes     GateName = "units_types"
)

// GateWeights maps each gate to its composite weight. Weights sum to 1.0.
var GateWeights = map[GateName]float64{
	GateDataCoverage:   0.25,
	GateReconciliation: 0.35,
	GateUniqueKeys:     0.20,
	GateStability:      0.10,
	GateUnitsTypes:     0.10,
}

// QualityGate is one weighted check over the current result set.
type QualityGate struct {
	Name    GateName `json:"name"`
	Weight  float64  `json:"weight"`
	Score   float64  `json:"score"`
	Passed  bool     `json:"passed"`
	Message string   `json:"message,omitempty"`
}

// QualityReport aggregates the gate results for one validated attempt.
type QualityReport struct {
	// Score is the weighted composite: sum of gate.Score * gate.Weight.
	Score float64 `json:"score"`
	// Passed means the composite cleared the profile threshold and no
	// hard-floor gate fell below its floor.
	Passed bool          `json:"passed"`
	Gates  []QualityGate `json:"gates"`
	// Plateau is true when score improvement over the last two validated
	// attempts fell below the configured epsilon.
	Plateau bool     `json:"plateau"`
	Notes   []string `json:"notes,omitempty"`
}

// Gate returns the named gate result, if present.
func (r *QualityReport) Gate(name GateName) (QualityGate, bool) {
	for _, g := range r.Gates {
		if g.Name == name {
			return g, true
		}
	}
	return QualityGate{}, false
}
