// Package llm is the boundary to the SQL-writing language model. The
// engine talks to the Client interface only; the Anthropic implementation
// and the prompt construction live here so collaborator details never
// leak into control flow.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

// GenerateRequest carries everything the model needs to write or revise
// one SQL query.
type GenerateRequest struct {
	Question string
	Caps     *dialect.Capabilities
	Schema   *core.SchemaProfile

	TimeWindow string
	Grain      string
	Filters    map[string]any

	// PreviousSQL and Hints are set on refinement rounds; Hints carries
	// the accumulated diagnosis feedback, most recent last.
	PreviousSQL string
	Hints       []string
}

// Refinement reports whether this request revises an earlier query.
func (r GenerateRequest) Refinement() bool { return r.PreviousSQL != "" }

// Generation is the model's reply to a GenerateRequest.
type Generation struct {
	SQL string `json:"sql"`
	// Notes explains the approach on a first generation.
	Notes string `json:"notes,omitempty"`
	// WhatChanged explains the fix on a refinement.
	WhatChanged string `json:"what_changed,omitempty"`
}

// SummarizeRequest asks for a natural-language reading of a result set.
type SummarizeRequest struct {
	Question string
	SQL      string
	Summary  core.ResultSummary
	Quality  *core.QualityReport
}

// Client generates and summarizes. Implementations must be safe for
// concurrent use; the engine may run many jobs at once.
type Client interface {
	GenerateSQL(ctx context.Context, req GenerateRequest) (Generation, error)
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
}

// decodeGeneration parses the strict-JSON reply contract. Models
// occasionally wrap the object in prose or a code fence, so the parser
// scans for the outermost object before unmarshalling.
func decodeGeneration(text string) (Generation, error) {
	raw, err := extractObject(text)
	if err != nil {
		return Generation{}, err
	}
	var g Generation
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return Generation{}, fmt.Errorf("malformed generation reply: %w", err)
	}
	if strings.TrimSpace(g.SQL) == "" {
		return Generation{}, fmt.Errorf("generation reply has no sql field")
	}
	g.SQL = strings.TrimSpace(g.SQL)
	return g, nil
}

func extractObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("reply contains no JSON object")
	}
	return text[start : end+1], nil
}
