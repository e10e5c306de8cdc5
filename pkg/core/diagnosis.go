package core

// DiagnosisKind classifies the outcome of one SQL execution attempt.
type DiagnosisKind string

const (
	// DiagNone means the execution succeeded with data.
	DiagNone DiagnosisKind = "none"
	// DiagSyntaxError covers SQL errors not matched by a more specific rule.
	DiagSyntaxError DiagnosisKind = "syntax_error"
	// DiagEmptyResult means the query ran but matched no rows.
	DiagEmptyResult DiagnosisKind = "empty_result"
	// DiagTypeMismatch means the database rejected an operand or cast.
	DiagTypeMismatch DiagnosisKind = "type_mismatch"
	// DiagTimeout means the connector reported a query timeout.
	DiagTimeout DiagnosisKind = "timeout"
	// DiagPermissionDenied means the database refused access.
	DiagPermissionDenied DiagnosisKind = "permission_denied"
	// DiagUnsupportedFeature means the SQL used a capability this dialect
	// does not have (e.g. QUALIFY without qualify support).
	DiagUnsupportedFeature DiagnosisKind = "dialect_unsupported_feature"
	// DiagUnknown covers collaborator failures outside the taxonomy.
	DiagUnknown DiagnosisKind = "unknown"
)

// Diagnosis is the classified outcome of one execution attempt. It drives
// the next control-flow decision and is fed back into refinement prompts.
type Diagnosis struct {
	Kind        DiagnosisKind `json:"kind"`
	Recoverable bool          `json:"recoverable"`
	// Hint is free text passed into the next SQL-generation prompt.
	Hint string `json:"hint,omitempty"`
}

// Fatal reports whether this diagnosis terminates the run.
func (d Diagnosis) Fatal() bool {
	return d.Kind != DiagNone && !d.Recoverable
}

// Success reports whether execution produced usable data.
func (d Diagnosis) Success() bool {
	return d.Kind == DiagNone
}
