package elasticsearch

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of ClientInterface for testing
type MockClient struct {
	mu sync.Mutex

	// Control behavior
	ListIndicesFunc func(ctx context.Context) ([]string, error)
	OptimizeFunc    func(ctx context.Context, index string) (*OptimizeResult, error)

	// Track calls for assertions
	ListCalls     int
	OptimizeCalls []string
	Started       bool
	Stopped       bool
}

// NewMockClient creates a mock that lists the given indices and optimizes successfully
func NewMockClient(indices ...string) *MockClient {
	return &MockClient{
		ListIndicesFunc: func(_ context.Context) ([]string, error) {
			return indices, nil
		},
		OptimizeCalls: make([]string, 0),
	}
}

// ListIndices implements ClientInterface
func (m *MockClient) ListIndices(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.ListCalls++
	fn := m.ListIndicesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	return nil, nil
}

// Optimize implements ClientInterface
func (m *MockClient) Optimize(ctx context.Context, index string) (*OptimizeResult, error) {
	m.mu.Lock()
	m.OptimizeCalls = append(m.OptimizeCalls, index)
	fn := m.OptimizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, index)
	}

	return &OptimizeResult{Index: index, Success: true}, nil
}

// Start implements ClientInterface
func (m *MockClient) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Started = true

	return nil
}

// Stop implements ClientInterface
func (m *MockClient) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stopped = true

	return nil
}

// Optimized returns a copy of the indices Optimize was called with
func (m *MockClient) Optimized() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.OptimizeCalls...)
}
