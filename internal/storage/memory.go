package storage

import (
	"context"
	"sync"

	"github.com/kgskocelas/Primordium/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        []model.RunSummary
	sampleSets  map[int]model.SampleSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = nil
	s.sampleSets = make(map[int]model.SampleSet)
	return nil
}

func (s *MemoryStore) SaveRunSummary(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, summary)
	return nil
}

func (s *MemoryStore) ListRunSummaries(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]model.RunSummary, len(s.runs))
	copy(copied, s.runs)
	return copied, nil
}

func (s *MemoryStore) SaveSampleSet(_ context.Context, set model.SampleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := set
	stored.Times = append([]float64(nil), set.Times...)
	s.sampleSets[set.NumOnes] = stored
	return nil
}

func (s *MemoryStore) GetSampleSet(_ context.Context, numOnes int) (model.SampleSet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sampleSets[numOnes]
	if !ok {
		return model.SampleSet{}, false, nil
	}
	copied := set
	copied.Times = append([]float64(nil), set.Times...)
	return copied, true, nil
}
