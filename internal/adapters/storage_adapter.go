package adapters

import (
	"context"
	"sync"
)

// StorageAdapter is the key-value durability boundary the record store
// depends on. Read reports whether the key exists; Write must be atomic per
// key. The record store treats the adapter as synchronous and owns the single
// key it writes — no other component touches it.
type StorageAdapter interface {
	// Read returns the value stored under key, and whether the key exists.
	Read(ctx context.Context, key string) (string, bool, error)
	// Write stores value under key, replacing any previous value.
	Write(ctx context.Context, key, value string) error
}

// InMemoryStorage is a StorageAdapter backed by a plain map. It is the
// default development driver and the workhorse of the test suite.
type InMemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewInMemoryStorage creates an empty in-memory adapter.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{data: make(map[string]string)}
}

func (s *InMemoryStorage) Read(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *InMemoryStorage) Write(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
