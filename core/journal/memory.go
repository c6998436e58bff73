package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps records in memory. It is the default when no journal
// path is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return q.apply(s.recs), nil
}

func (s *MemoryStore) Close() error { return nil }
