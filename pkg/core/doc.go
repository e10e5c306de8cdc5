// Package core defines the shared language of the analyst engine.
//
// This package contains:
//   - Job input contracts (QuerySpec, Budget, ValidationProfile)
//   - The per-job state record (AnalystState) and its audit trace
//   - Quality assessment types (QualityGate, QualityReport)
//   - Execution outcome types (Result, Diagnosis, Artifact, RunResult)
//   - Schema profile types produced by connector introspection
//
// The Golden Rule: pkg/core imports ONLY the stdlib.
// All other packages depend on core, not the reverse.
package core
