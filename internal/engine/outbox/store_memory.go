package outbox

import (
	"context"
	"sync"

	id "gridgate/pkg/domain"
)

// InMemoryStore keeps the event log in memory. Same contract as the
// PostgreSQL store; used for tests and single-node deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextSeq int64
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextSeq: 1}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Seq = s.nextSeq
	s.nextSeq++
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *InMemoryStore) ListByPermission(_ context.Context, permissionID id.PermissionID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, entry := range s.entries {
		if entry.PermissionID == permissionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Len reports the total number of committed entries, for tests.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
