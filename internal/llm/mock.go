package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a scriptable implementation of the Provider interface for
// testing. It replays a fixed sequence of responses and records every request
// it receives.
type MockProvider struct {
	mu        sync.Mutex
	responses []ChatResponse
	index     int
	requests  []ChatRequest

	// Err, when set, is returned by every Chat call.
	Err error
}

// NewMockProvider creates a mock provider that returns the given responses in
// order. Once the script is exhausted the last response is repeated.
func NewMockProvider(responses ...ChatResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewFixedProvider creates a mock provider that always returns a plain text
// answer.
func NewFixedProvider(content string) *MockProvider {
	return NewMockProvider(ChatResponse{
		Content:      content,
		FinishReason: FinishReasonStop,
	})
}

// Chat implements the Provider interface.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock provider has no scripted responses")
	}

	resp := m.responses[m.index]
	if m.index < len(m.responses)-1 {
		m.index++
	}
	return &resp, nil
}

// Requests returns a copy of all requests received so far.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of Chat calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// SupportsToolCalling returns true so tool schemas are always attached.
func (m *MockProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel returns a placeholder model name.
func (m *MockProvider) GetDefaultModel() string {
	return "mock"
}
