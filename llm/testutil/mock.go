// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/infumatch/negotiator/llm"
)

// MockClient is a thread-safe mock completion client.
// It returns configured responses in sequence and records every request.
//
// Usage:
//
//	mock := &testutil.MockClient{
//	    Responses: []*llm.Response{{Content: `{"ok": true}`, Model: "test"}},
//	}
type MockClient struct {
	mu        sync.Mutex
	requests  []llm.Request
	Responses []*llm.Response // Responses to return in sequence
	Err       error           // Error to return (takes precedence over Responses)

	index int
}

// Complete implements llm.CompletionClient.
func (m *MockClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	if m.index < len(m.Responses) {
		resp := m.Responses[m.index]
		m.index++
		return resp, nil
	}

	// Repeat the last response once the sequence is exhausted.
	if len(m.Responses) > 0 {
		return m.Responses[len(m.Responses)-1], nil
	}

	return &llm.Response{Content: "", Model: "mock"}, nil
}

// Requests returns a copy of all captured requests.
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times Complete was invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
