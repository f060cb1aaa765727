package storage

import (
	"context"
	"sync"
)

// MemoryStore is a Store which keeps records in RAM
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        []string
	episodes    map[string][]Episode
}

// NewMemoryStore returns a new, uninitialized MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init implements Store
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.episodes = make(map[string][]Episode)
	return nil
}

// SaveEpisode implements Store
func (s *MemoryStore) SaveEpisode(_ context.Context, e Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, ok := s.episodes[e.RunID]; !ok {
		s.runs = append(s.runs, e.RunID)
	}
	s.episodes[e.RunID] = append(s.episodes[e.RunID], e)
	return nil
}

// Episodes implements Store
func (s *MemoryStore) Episodes(_ context.Context, runID string) ([]Episode,
	error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return append([]Episode(nil), s.episodes[runID]...), nil
}

// Runs implements Store
func (s *MemoryStore) Runs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return append([]string(nil), s.runs...), nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
