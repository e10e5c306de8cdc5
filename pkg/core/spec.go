package core

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect identifies a SQL variant with distinct syntax and feature support.
type Dialect string

// Recognized dialects. Every value has a capability entry in pkg/dialect;
// not every value ships with a bundled database driver.
const (
	DialectPostgres   Dialect = "postgres"
	DialectMySQL      Dialect = "mysql"
	DialectMSSQL      Dialect = "mssql"
	DialectSQLite     Dialect = "sqlite"
	DialectSnowflake  Dialect = "snowflake"
	DialectBigQuery   Dialect = "bigquery"
	DialectDuckDB     Dialect = "duckdb"
	DialectTrino      Dialect = "trino"
	DialectClickHouse Dialect = "clickhouse"
)

// Dialects returns all recognized dialect values (sorted by declaration order).
func Dialects() []Dialect {
	return []Dialect{
		DialectPostgres, DialectMySQL, DialectMSSQL, DialectSQLite,
		DialectSnowflake, DialectBigQuery, DialectDuckDB, DialectTrino,
		DialectClickHouse,
	}
}

// ValidationProfile selects how strict the quality gate is.
type ValidationProfile string

const (
	// ProfileFast runs basic checks only (threshold 0.55).
	ProfileFast ValidationProfile = "fast"
	// ProfileBalanced is the default validation suite (threshold 0.70).
	ProfileBalanced ValidationProfile = "balanced"
	// ProfileStrict adds hard floors on reconciliation and unique-key gates
	// (threshold 0.85).
	ProfileStrict ValidationProfile = "strict"
)

// Budget caps the resources one job may consume.
type Budget struct {
	// MaxQueries is the maximum number of SQL executions, cross-checks included.
	MaxQueries int `json:"max_queries" koanf:"max_queries"`
	// MaxSeconds is the wall-clock budget measured from job start.
	MaxSeconds int `json:"max_seconds" koanf:"max_seconds"`
}

// Budget normalization bounds applied at submission.
const (
	MinBudgetQueries = 1
	MaxBudgetQueries = 100
	MinBudgetSeconds = 10
	MaxBudgetSeconds = 600

	DefaultBudgetQueries = 30
	DefaultBudgetSeconds = 90
)

// DefaultBudget returns the budget applied when a submission omits one.
func DefaultBudget() Budget {
	return Budget{MaxQueries: DefaultBudgetQueries, MaxSeconds: DefaultBudgetSeconds}
}

// Clamp bounds the budget to the accepted range, substituting defaults
// for non-positive values.
func (b Budget) Clamp() Budget {
	out := b
	if out.MaxQueries <= 0 {
		out.MaxQueries = DefaultBudgetQueries
	}
	if out.MaxSeconds <= 0 {
		out.MaxSeconds = DefaultBudgetSeconds
	}
	if out.MaxQueries < MinBudgetQueries {
		out.MaxQueries = MinBudgetQueries
	}
	if out.MaxQueries > MaxBudgetQueries {
		out.MaxQueries = MaxBudgetQueries
	}
	if out.MaxSeconds < MinBudgetSeconds {
		out.MaxSeconds = MinBudgetSeconds
	}
	if out.MaxSeconds > MaxBudgetSeconds {
		out.MaxSeconds = MaxBudgetSeconds
	}
	return out
}

// MaxQuestionLength bounds the natural-language question size.
const MaxQuestionLength = 2000

// QuerySpec is the immutable per-job input. It is created once at job
// submission and never mutated afterwards.
type QuerySpec struct {
	// Question is the natural-language data question.
	Question string `json:"question"`
	// Dialect is the target SQL dialect for generation and execution.
	Dialect Dialect `json:"dialect"`
	// TimeWindow optionally scopes the question (e.g. "last_6_months").
	TimeWindow string `json:"time_window,omitempty"`
	// Grain optionally fixes time granularity (month, day, hour).
	Grain string `json:"grain,omitempty"`
	// Filters carries additional constraints passed through to prompts.
	// The reserved key "compare_time_window" declares the alternate window
	// used by the stability quality gate.
	Filters map[string]any `json:"filters,omitempty"`
	// KeyColumn optionally declares the column checked by the unique-keys
	// gate. When empty a key column is inferred from the result shape.
	KeyColumn string `json:"key_column,omitempty"`
	// Budget caps queries and wall-clock seconds for this job.
	Budget Budget `json:"budget"`
	// ValidationProfile selects the quality threshold.
	ValidationProfile ValidationProfile `json:"validation_profile"`
}

// FilterCompareWindow is the Filters key declaring the stability gate's
// alternate time window.
const FilterCompareWindow = "compare_time_window"

// Validation errors surfaced before a job enters the state machine.
var (
	ErrEmptyQuestion   = errors.New("question must not be empty")
	ErrMissingDialect  = errors.New("dialect is required")
	ErrMalformedBudget = errors.New("budget values must be positive")
)

// Validate checks the spec for configuration errors. These reject the job
// at submission; they never enter the refinement loop.
func (s *QuerySpec) Validate() error {
	if strings.TrimSpace(s.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(s.Question) > MaxQuestionLength {
		return fmt.Errorf("question exceeds %d characters", MaxQuestionLength)
	}
	if s.Dialect == "" {
		return ErrMissingDialect
	}
	if s.Budget.MaxQueries <= 0 || s.Budget.MaxSeconds <= 0 {
		return ErrMalformedBudget
	}
	return nil
}

// Normalize fills defaults and clamps bounded fields. Call before Validate
// on untrusted submissions.
func (s *QuerySpec) Normalize() {
	if s.ValidationProfile == "" {
		s.ValidationProfile = ProfileBalanced
	}
	if s.Budget == (Budget{}) {
		s.Budget = DefaultBudget()
	} else {
		s.Budget = s.Budget.Clamp()
	}
}

// CompareWindow returns the declared alternate time window for the
// stability gate, or "" if none was declared.
func (s *QuerySpec) CompareWindow() string {
	if s.Filters == nil {
		return ""
	}
	if w, ok := s.Filters[FilterCompareWindow].(string); ok {
		return w
	}
	return ""
}
