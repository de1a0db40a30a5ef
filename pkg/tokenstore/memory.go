package tokenstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lborres/agenda/core"
)

// MemoryStore implements core.TokenStorage in process memory.
// Tokens do not survive a restart; use it for tests and one-shot runs.
type MemoryStore struct {
	values map[string]string
	mu     sync.RWMutex

	// counters
	hits    int64
	misses  int64
	sets    int64
	removes int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.values[key]
	if !exists {
		atomic.AddInt64(&m.misses, 1)
		return "", core.ErrTokenNotFound
	}

	atomic.AddInt64(&m.hits, 1)
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	atomic.AddInt64(&m.sets, 1)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.values[key]; exists {
		delete(m.values, key)
		atomic.AddInt64(&m.removes, 1)
	}
	return nil
}

// Stats is a snapshot of the store's counters
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Removes int64 `json:"removes"`
	Size    int   `json:"size"`
}

func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	size := len(m.values)
	m.mu.RUnlock()

	return Stats{
		Hits:    atomic.LoadInt64(&m.hits),
		Misses:  atomic.LoadInt64(&m.misses),
		Sets:    atomic.LoadInt64(&m.sets),
		Removes: atomic.LoadInt64(&m.removes),
		Size:    size,
	}
}
