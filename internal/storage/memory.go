package storage

import (
	"context"
	"sort"
	"sync"

	"cellsim/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	cells       map[string][]model.CellRecord
	colonies    map[string][]model.ColonyRecord
	trees       map[string][]model.TreeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.cells = make(map[string][]model.CellRecord)
	s.colonies = make(map[string][]model.ColonyRecord)
	s.trees = make(map[string][]model.TreeRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC < runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// Reset drops every stored run and leaves the store initialized and empty.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.cells = make(map[string][]model.CellRecord)
	s.colonies = make(map[string][]model.ColonyRecord)
	s.trees = make(map[string][]model.TreeRecord)
	return nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	delete(s.cells, id)
	delete(s.colonies, id)
	delete(s.trees, id)
	return nil
}

func (s *MemoryStore) SaveCellRecords(_ context.Context, runID string, cells []model.CellRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.CellRecord, len(cells))
	copy(copied, cells)
	s.cells[runID] = copied
	return nil
}

func (s *MemoryStore) GetCellRecords(_ context.Context, runID string) ([]model.CellRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cells, ok := s.cells[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.CellRecord, len(cells))
	copy(copied, cells)
	return copied, true, nil
}

func (s *MemoryStore) SaveColonyRecords(_ context.Context, runID string, colonies []model.ColonyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.ColonyRecord, len(colonies))
	copy(copied, colonies)
	s.colonies[runID] = copied
	return nil
}

func (s *MemoryStore) GetColonyRecords(_ context.Context, runID string) ([]model.ColonyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	colonies, ok := s.colonies[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.ColonyRecord, len(colonies))
	copy(copied, colonies)
	return copied, true, nil
}

func (s *MemoryStore) SaveTrees(_ context.Context, runID string, trees []model.TreeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.TreeRecord, len(trees))
	copy(copied, trees)
	s.trees[runID] = copied
	return nil
}

func (s *MemoryStore) GetTrees(_ context.Context, runID string) ([]model.TreeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trees, ok := s.trees[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TreeRecord, len(trees))
	copy(copied, trees)
	return copied, true, nil
}
