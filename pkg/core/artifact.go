package core

import "time"

// ArtifactKind identifies the type of a generated artifact.
type ArtifactKind string

const (
	ArtifactTable ArtifactKind = "table"
	ArtifactChart ArtifactKind = "chart"
	ArtifactSQL   ArtifactKind = "sql"
	ArtifactLog   ArtifactKind = "log"
)

// Artifact is one output attached to a finished job: a result table, the
// final SQL text, an execution log, or a declarative chart spec.
type Artifact struct {
	ID        string         `json:"id"`
	Kind      ArtifactKind   `json:"kind"`
	Title     string         `json:"title"`
	Content   map[string]any `json:"content,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
