package scheduler

import (
	"context"
	"sync"
	"time"
)

// InMemoryQueue is a process-local Queue for tests and single-node runs.
type InMemoryQueue struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{}
}

func (q *InMemoryQueue) Push(_ context.Context, entry Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	return nil
}

func (q *InMemoryQueue) PopDue(_ context.Context, now time.Time) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due, rest []Entry
	for _, entry := range q.entries {
		if !entry.DueAt.After(now) {
			due = append(due, entry)
		} else {
			rest = append(rest, entry)
		}
	}
	q.entries = rest
	return due, nil
}

// Len reports the number of parked entries.
func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
