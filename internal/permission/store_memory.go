package permission

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// InMemoryStore keeps projections in a mutex-guarded map. It satisfies the
// same Repository contract as the PostgreSQL store so tests and the postgres
// deployment exercise identical semantics.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.PermissionID]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.PermissionID]*Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.PermissionID]; exists {
		return fmt.Errorf("create permission request %s: %w", req.PermissionID, sentinel.ErrConflict)
	}
	stored := req.Clone()
	stored.Version = 1
	s.requests[req.PermissionID] = stored
	req.Version = 1
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, permissionID id.PermissionID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.requests[permissionID]
	if !ok {
		return nil, fmt.Errorf("get permission request %s: %w", permissionID, sentinel.ErrNotFound)
	}
	return stored.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, req *Request, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[req.PermissionID]
	if !ok {
		return fmt.Errorf("update permission request %s: %w", req.PermissionID, sentinel.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("update permission request %s: version %d, expected %d: %w",
			req.PermissionID, stored.Version, expectedVersion, sentinel.ErrConflict)
	}
	next := req.Clone()
	next.Version = expectedVersion + 1
	s.requests[req.PermissionID] = next
	req.Version = next.Version
	return nil
}

func (s *InMemoryStore) FindLiveByCorrelation(_ context.Context, conversationID id.ConversationID, externalRequestID id.ExternalRequestID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, stored := range s.requests {
		if !stored.Status.Live() {
			continue
		}
		if matchesKeys(stored, conversationID, externalRequestID) {
			out = append(out, stored.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListByConnection(_ context.Context, connectionID id.ConnectionID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, stored := range s.requests {
		if stored.ConnectionID == connectionID {
			out = append(out, stored.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status Status) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, stored := range s.requests {
		if stored.Status == status {
			out = append(out, stored.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListStale(_ context.Context, statuses []Status, cutoff time.Time) ([]*Request, error) {
	wanted := make(map[Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, stored := range s.requests {
		if wanted[stored.Status] && stored.UpdatedAt.Before(cutoff) {
			out = append(out, stored.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func matchesKeys(req *Request, conversationID id.ConversationID, externalRequestID id.ExternalRequestID) bool {
	if conversationID != "" && req.Keys.ConversationID == conversationID {
		return true
	}
	if externalRequestID != "" && req.Keys.ExternalRequestID == externalRequestID {
		return true
	}
	return false
}

func sortByCreation(requests []*Request) {
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].PermissionID < requests[j].PermissionID
		}
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
}
