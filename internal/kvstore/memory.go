// Package kvstore provides the non-database checkpoint backends.
package kvstore

import (
	"context"
	"sync"

	"gw-audit/internal/domain"
)

// Memory keeps values for the life of the process. It backs checkpoints in
// the daemon when no durable store is configured, and in tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get implements domain.KVStore.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements domain.KVStore.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete implements domain.KVStore.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

var _ domain.KVStore = (*Memory)(nil)
