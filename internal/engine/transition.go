package engine

import "github.com/leapstack-labs/analyst/pkg/core"

// Caps holds the retry ceilings for recoverable diagnoses.
type Caps struct {
	// Syntax is how many refinement rounds a syntax error may consume
	// before it turns fatal.
	Syntax int
	// Empty is how many refinement rounds an empty result may consume
	// before it is accepted as the final (low quality) answer.
	Empty int
}

// Next is the routing table of the state machine. It is a pure function
// of the current node and state: the engine records every fact routing
// depends on (diagnoses, budget counters, quality reports) in state
// before calling it.
func Next(node core.Node, state *core.AnalystState, caps Caps) core.Node {
	switch node {
	case core.NodePlan:
		return core.NodeProfile
	case core.NodeProfile:
		return core.NodeMVQ
	case core.NodeMVQ:
		return core.NodeDiagnose
	case core.NodeDiagnose:
		return afterDiagnose(state, caps)
	case core.NodeRefine:
		return core.NodeMVQ
	case core.NodeTransform:
		return core.NodeValidate
	case core.NodeValidate:
		return afterValidate(state)
	default:
		return core.NodePresent
	}
}

func afterDiagnose(state *core.AnalystState, caps Caps) core.Node {
	d, ok := state.LastDiagnosis()
	if !ok {
		return core.NodePresent
	}
	if d.Success() {
		return core.NodeTransform
	}
	if d.Fatal() {
		return core.NodePresent
	}
	switch d.Kind {
	case core.DiagSyntaxError:
		if state.KindCount(core.DiagSyntaxError) > caps.Syntax {
			return core.NodePresent
		}
	case core.DiagEmptyResult:
		// Past the cap an empty result is the answer: "no matching data".
		if state.KindCount(core.DiagEmptyResult) > caps.Empty {
			return core.NodeTransform
		}
	}
	if !budgetRemaining(state) {
		return core.NodePresent
	}
	return core.NodeRefine
}

func afterValidate(state *core.AnalystState) core.Node {
	report := state.FinalQuality
	if report == nil || report.Passed {
		return core.NodePresent
	}
	if report.Plateau || !budgetRemaining(state) {
		return core.NodePresent
	}
	return core.NodeRefine
}

// budgetRemaining reads the recorded budget counters; it must not consult
// a clock so Next stays pure.
func budgetRemaining(s *core.AnalystState) bool {
	return s.Budget.QueriesUsed < s.Spec.Budget.MaxQueries &&
		s.Budget.SecondsUsed <= float64(s.Spec.Budget.MaxSeconds)
}
