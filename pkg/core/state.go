package core

import "time"

// Node names the states of the refinement machine. The node set is fixed;
// routing between nodes is decided by the engine's transition function.
type Node string

const (
	NodePlan      Node = "plan"
	NodeProfile   Node = "profile"
	NodeMVQ       Node = "mvq"
	NodeDiagnose  Node = "diagnose"
	NodeRefine    Node = "refine"
	NodeTransform Node = "transform"
	NodeValidate  Node = "validate"
	NodePresent   Node = "present"
)

// StepStatus is the recorded outcome of one node visit.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// ExecutionStep is one entry of the append-only audit trace. Exactly one
// entry is recorded per node visit; it is also the unit consumed by
// progress streaming.
type ExecutionStep struct {
	Node        Node           `json:"node"`
	Status      StepStatus     `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	SQL         string         `json:"sql,omitempty"`
	RowCount    int            `json:"row_count,omitempty"`
	Error       string         `json:"error,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// BudgetState tracks consumed resources. Monotonic, never decremented.
type BudgetState struct {
	QueriesUsed int     `json:"queries_used"`
	SecondsUsed float64 `json:"seconds_used"`
}

// CrossCheck keys under AnalystState.CrossChecks.
const (
	CrossCheckReconciliation = "reconciliation"
	CrossCheckStability      = "stability"
)

// AnalystState is the single mutable record threaded through every node of
// one job run. It is owned exclusively by that run and never shared across
// concurrent jobs.
type AnalystState struct {
	JobID string    `json:"job_id"`
	Spec  QuerySpec `json:"spec"`

	SchemaProfile *SchemaProfile `json:"schema_profile,omitempty"`

	// SQLCandidate is the current candidate query text (possibly empty).
	SQLCandidate string `json:"sql_candidate,omitempty"`
	// LastResult holds the most recent successful execution, if any.
	LastResult *Result `json:"last_result,omitempty"`
	// LastError is the most recent execution error text, if any.
	LastError string `json:"last_error,omitempty"`

	// CrossChecks holds secondary result sets gathered for quality gates,
	// keyed by CrossCheck* constants. Populated by the engine so the
	// evaluator stays a pure function of state.
	CrossChecks map[string]*Result `json:"cross_checks,omitempty"`

	// Diagnoses has one entry per attempted execution, in order.
	Diagnoses []Diagnosis `json:"diagnoses"`
	// QualityScores has one composite score per validated attempt.
	QualityScores []float64 `json:"quality_scores"`
	// Iteration counts refinement re-entries, starting at 0.
	Iteration int `json:"iteration"`

	Budget BudgetState `json:"budget_state"`

	// Steps is the append-only audit trace.
	Steps []ExecutionStep `json:"execution_steps"`

	// Shaped is the presentation view of LastResult, set by transform.
	Shaped *ResultSummary `json:"shaped,omitempty"`

	// Terminal outputs, set by present.
	Answer       string         `json:"answer,omitempty"`
	Artifacts    []Artifact     `json:"artifacts,omitempty"`
	FinalQuality *QualityReport `json:"final_quality,omitempty"`
	Cancelled    bool           `json:"cancelled,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewAnalystState creates the initial state for a job run with empty history.
func NewAnalystState(jobID string, spec QuerySpec) *AnalystState {
	return &AnalystState{
		JobID:       jobID,
		Spec:        spec,
		CrossChecks: make(map[string]*Result),
		Diagnoses:   make([]Diagnosis, 0, 4),
		Steps:       make([]ExecutionStep, 0, 8),
		CreatedAt:   time.Now().UTC(),
	}
}

// AddStep appends one audit entry and returns a pointer to it so the
// caller can fill SQL, row count, and metadata before the node exits.
func (s *AnalystState) AddStep(node Node, status StepStatus, started time.Time) *ExecutionStep {
	s.Steps = append(s.Steps, ExecutionStep{
		Node:        node,
		Status:      status,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	})
	return &s.Steps[len(s.Steps)-1]
}

// AddDiagnosis appends a classification. History is never discarded.
func (s *AnalystState) AddDiagnosis(d Diagnosis) {
	s.Diagnoses = append(s.Diagnoses, d)
}

// LastDiagnosis returns the most recent diagnosis, if any.
func (s *AnalystState) LastDiagnosis() (Diagnosis, bool) {
	if len(s.Diagnoses) == 0 {
		return Diagnosis{}, false
	}
	return s.Diagnoses[len(s.Diagnoses)-1], true
}

// KindCount returns how many recorded diagnoses carry the given kind.
func (s *AnalystState) KindCount(kind DiagnosisKind) int {
	n := 0
	for _, d := range s.Diagnoses {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Hints collects the accumulated diagnosis hints, oldest first, for
// inclusion in refinement prompts.
func (s *AnalystState) Hints() []string {
	var hints []string
	for _, d := range s.Diagnoses {
		if d.Hint != "" {
			hints = append(hints, d.Hint)
		}
	}
	return hints
}

// AddArtifact appends an output artifact.
func (s *AnalystState) AddArtifact(a Artifact) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.Artifacts = append(s.Artifacts, a)
}

// ArtifactsByKind filters artifacts by kind.
func (s *AnalystState) ArtifactsByKind(kind ArtifactKind) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// HasData reports whether the state carries a successful non-empty result.
func (s *AnalystState) HasData() bool {
	return s.LastResult != nil && s.LastResult.RowCount > 0
}

// ToRunResult freezes the terminal state into the API payload.
func (s *AnalystState) ToRunResult() *RunResult {
	quality := QualityReport{}
	if s.FinalQuality != nil {
		quality = *s.FinalQuality
	}
	return &RunResult{
		JobID:          s.JobID,
		Answer:         s.Answer,
		Tables:         s.ArtifactsByKind(ArtifactTable),
		Charts:         s.ArtifactsByKind(ArtifactChart),
		Quality:        quality,
		ExecutionSteps: s.Steps,
		CreatedAt:      s.CreatedAt,
		CompletedAt:    s.CompletedAt,
	}
}
