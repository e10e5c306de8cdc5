package core

import "time"

// Result holds one successful SQL execution: columns, rows, and timing.
// Failed executions are represented by errors from the connector, not by
// a Result.
type Result struct {
	// SQL is the statement that produced this result.
	SQL string `json:"sql"`
	// Columns are the result column names in select order.
	Columns []string `json:"columns"`
	// Rows holds the result values, one slice per row.
	Rows [][]any `json:"rows"`
	// RowCount is len(Rows); kept explicit so trimmed results stay honest.
	RowCount int `json:"row_count"`
	// Duration is the connector-measured execution time.
	Duration time.Duration `json:"duration"`
}

// Empty reports whether the execution succeeded but matched no data.
func (r *Result) Empty() bool {
	return r != nil && r.RowCount == 0
}

// Column returns the index of the named column, or -1.
func (r *Result) Column(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ResultSummary is the shaped view of a result used by presentation
// and artifact assembly.
type ResultSummary struct {
	Rows       int      `json:"rows"`
	Columns    int      `json:"columns"`
	ColumnName []string `json:"column_names"`
	// Sample holds up to the first ten rows.
	Sample [][]any `json:"sample,omitempty"`
}

// Summarize computes the shaped summary of a result.
func (r *Result) Summarize() *ResultSummary {
	if r == nil {
		return nil
	}
	sample := r.Rows
	if len(sample) > 10 {
		sample = sample[:10]
	}
	return &ResultSummary{
		Rows:       r.RowCount,
		Columns:    len(r.Columns),
		ColumnName: r.Columns,
		Sample:     sample,
	}
}

// RunResult is the terminal payload exposed at the job API boundary.
type RunResult struct {
	JobID          string          `json:"job_id"`
	Answer         string          `json:"answer"`
	Tables         []Artifact      `json:"tables"`
	Charts         []Artifact      `json:"charts"`
	Quality        QualityReport   `json:"quality"`
	ExecutionSteps []ExecutionStep `json:"execution_steps"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// JobStatus tracks a job through the API layer.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}
