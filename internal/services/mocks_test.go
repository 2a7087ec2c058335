package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"patient-records-service/internal/adapters"
)

// Compile-time check that the mock satisfies the adapter contract.
var _ adapters.StorageAdapter = (*MockStorageAdapter)(nil)

// MockStorageAdapter is a hand-rolled storage mock. By default it behaves as
// an in-memory map; individual calls can be overridden through the Func
// fields to inject failures.
type MockStorageAdapter struct {
	ReadFunc  func(ctx context.Context, key string) (string, bool, error)
	WriteFunc func(ctx context.Context, key, value string) error

	ReadCallCount  int32
	WriteCallCount int32

	mu   sync.Mutex
	data map[string]string
}

func NewMockStorageAdapter() *MockStorageAdapter {
	return &MockStorageAdapter{data: make(map[string]string)}
}

func (m *MockStorageAdapter) Read(ctx context.Context, key string) (string, bool, error) {
	atomic.AddInt32(&m.ReadCallCount, 1)
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MockStorageAdapter) Write(ctx context.Context, key, value string) error {
	atomic.AddInt32(&m.WriteCallCount, 1)
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Seed stores a raw blob directly, bypassing the call counters.
func (m *MockStorageAdapter) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// sequentialIDs is a deterministic IDGenerator for tests: id-0001, id-0002, …
type sequentialIDs struct {
	n int
}

func (g *sequentialIDs) Next() string {
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}
