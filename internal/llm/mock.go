package llm

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a scripted Client for tests. Each GenerateSQL call pops the
// next scripted generation; Summarize returns a fixed answer. The zero
// value fails every call, which is itself a useful script.
type Mock struct {
	mu sync.Mutex

	// Generations are returned in order; a nil SQL entry (empty string)
	// with Err set simulates a collaborator failure.
	Generations  []MockGeneration
	Answer       string
	SummarizeErr error

	generateCalls  int
	summarizeCalls int
	requests       []GenerateRequest
}

// MockGeneration scripts one GenerateSQL reply.
type MockGeneration struct {
	SQL         string
	WhatChanged string
	Err         error
}

func (m *Mock) GenerateSQL(ctx context.Context, req GenerateRequest) (Generation, error) {
	if err := ctx.Err(); err != nil {
		return Generation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	i := m.generateCalls
	m.generateCalls++
	if i >= len(m.Generations) {
		return Generation{}, fmt.Errorf("mock: no generation scripted for call %d", i+1)
	}
	g := m.Generations[i]
	if g.Err != nil {
		return Generation{}, g.Err
	}
	return Generation{SQL: g.SQL, WhatChanged: g.WhatChanged}, nil
}

func (m *Mock) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summarizeCalls++
	if m.SummarizeErr != nil {
		return "", m.SummarizeErr
	}
	if m.Answer == "" {
		return "mock answer", nil
	}
	return m.Answer, nil
}

// GenerateCalls returns how many times GenerateSQL ran.
func (m *Mock) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// Requests returns the captured GenerateSQL requests in order.
func (m *Mock) Requests() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
