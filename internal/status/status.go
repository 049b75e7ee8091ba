// Package status publishes externally visible status changes so callers can
// follow a permission request without polling. Non-transitioning events
// (informational answers, reading watermarks) are not published.
package status

import (
	"context"
	"sync"
	"time"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

// Message is one published status change.
type Message struct {
	PermissionID  id.PermissionID      `json:"permissionId"`
	ConnectionID  id.ConnectionID      `json:"connectionId"`
	DataNeedID    id.DataNeedID        `json:"dataNeedId"`
	Administrator string               `json:"administrator"`
	Region        id.Region            `json:"region"`
	Status        permission.Status    `json:"status"`
	EventKind     permission.EventKind `json:"eventKind"`
	Message       string               `json:"message,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// Emitter publishes status messages to interested callers.
type Emitter interface {
	Emit(ctx context.Context, msg Message) error
}

// InMemoryEmitter collects messages for tests and single-node runs.
type InMemoryEmitter struct {
	mu       sync.Mutex
	messages []Message
}

func NewInMemoryEmitter() *InMemoryEmitter {
	return &InMemoryEmitter{}
}

func (e *InMemoryEmitter) Emit(_ context.Context, msg Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, msg)
	return nil
}

// Messages returns a copy of everything emitted so far.
func (e *InMemoryEmitter) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}
