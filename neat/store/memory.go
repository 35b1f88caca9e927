package store

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var errNotInitialized = errors.New("store is not initialized")

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	generations map[string]map[int]GenerationRecord
	hallOfFame  map[string][]GenomeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.generations = make(map[string]map[int]GenerationRecord)
	s.hallOfFame = make(map[string][]GenomeRecord)
	return nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, record GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	run, ok := s.generations[record.RunID]
	if !ok {
		run = make(map[int]GenerationRecord)
		s.generations[record.RunID] = run
	}
	record.BestGenome = slices.Clone(record.BestGenome)
	run[record.Iteration] = record
	return nil
}

func (s *MemoryStore) ListGenerations(_ context.Context, runID string) ([]GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	records := make([]GenerationRecord, 0, len(s.generations[runID]))
	for _, r := range s.generations[runID] {
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b GenerationRecord) int {
		return a.Iteration - b.Iteration
	})
	return records, nil
}

func (s *MemoryStore) SaveHallOfFame(_ context.Context, runID string, entries []GenomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	saved := make([]GenomeRecord, len(entries))
	for i, e := range entries {
		e.Payload = slices.Clone(e.Payload)
		saved[i] = e
	}
	s.hallOfFame[runID] = saved
	return nil
}

func (s *MemoryStore) GetHallOfFame(_ context.Context, runID string) ([]GenomeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}
	entries, ok := s.hallOfFame[runID]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(entries), true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
