package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryProvider creates in-process stores. Sessions share nothing but the
// hit/miss counters.
type MemoryProvider struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryProvider creates a provider of in-memory stores
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// NewSession returns an empty store
func (p *MemoryProvider) NewSession(id string) Store {
	return &MemoryStore{entries: make(map[string]string), provider: p}
}

// Stats returns hit/miss counters across every session
func (p *MemoryProvider) Stats() Stats {
	return computeStats(p.hits.Load(), p.misses.Load())
}

// Close is a no-op
func (p *MemoryProvider) Close() error {
	return nil
}

// MemoryStore is a map-backed Store
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]string
	provider *MemoryProvider
}

// NewMemoryStore returns a standalone store
func NewMemoryStore() *MemoryStore {
	return NewMemoryProvider().NewSession("").(*MemoryStore)
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if ok {
		s.provider.hits.Add(1)
	} else {
		s.provider.misses.Add(1)
	}
	return v, ok, nil
}

// Set implements Store
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return nil
}

// Clear implements Store
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]string)
	return nil
}

// Len returns the number of cached entries
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
