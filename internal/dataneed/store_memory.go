package dataneed

import (
	"context"
	"fmt"
	"sync"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// InMemoryStore holds data need definitions in memory, for tests and
// single-node deployments.
type InMemoryStore struct {
	mu    sync.RWMutex
	needs map[id.DataNeedID]*DataNeed
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{needs: make(map[id.DataNeedID]*DataNeed)}
}

func (s *InMemoryStore) Put(need *DataNeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needs[need.ID] = need
}

func (s *InMemoryStore) Get(_ context.Context, dataNeedID id.DataNeedID) (*DataNeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	need, ok := s.needs[dataNeedID]
	if !ok {
		return nil, fmt.Errorf("get data need %s: %w", dataNeedID, sentinel.ErrNotFound)
	}
	copied := *need
	copied.Granularities = append([]permission.Granularity{}, need.Granularities...)
	return &copied, nil
}
