package mocks

import (
	"context"
	"sync"
	"time"
)

// MockDistributedLock is an in-process DistributedLock for testing.
// TTLs are recorded but not enforced.
type MockDistributedLock struct {
	mu    sync.Mutex
	held  map[string]bool
	fails bool
}

// NewMockDistributedLock creates a new MockDistributedLock
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]bool)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return false, context.DeadlineExceeded
	}
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockDistributedLock) SetFails(fails bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails = fails
}

func (m *MockDistributedLock) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name]
}
