package store

import (
	"context"
	"sync"
)

// MemoryStore is the process-local backend. Entries live for the lifetime
// of the process; there is no eviction. Query cardinality is operator
// controlled and small, so unbounded growth is acceptable here.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, query string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[query]
	s.mu.RUnlock()
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, query string, e Entry) error {
	s.mu.Lock()
	s.entries[query] = e
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries. Useful for tests or manual resets.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
}
