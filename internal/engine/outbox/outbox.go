// Package outbox is the durable, append-only, per-request-ordered event log.
// Entries are never mutated or deleted; this is the audit and replay
// guarantee. The engine appends in the same transaction as the projection
// update so no event is observable without being durably recorded.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

// Entry is one committed event. Seq is assigned by the store and is monotonic
// per store; ordering is only meaningful within one permission id.
type Entry struct {
	Seq          int64
	PermissionID id.PermissionID
	EventKind    permission.EventKind
	Payload      json.RawMessage
	CommittedAt  time.Time
}

// Event decodes the stored payload back into its typed event.
func (e Entry) Event() (permission.Event, error) {
	return permission.DecodeEvent(e.EventKind, e.Payload)
}

// Store persists outbox entries.
type Store interface {
	// Append records one committed event and returns the entry with its
	// assigned sequence position.
	Append(ctx context.Context, entry Entry) (Entry, error)

	// ListByPermission returns the full event sequence for one aggregate in
	// commit order.
	ListByPermission(ctx context.Context, permissionID id.PermissionID) ([]Entry, error)
}

// NewEntry builds an entry for an event, leaving Seq to the store.
func NewEntry(ev permission.Event, committedAt time.Time) (Entry, error) {
	payload, err := permission.EncodeEvent(ev)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		PermissionID: ev.Permission(),
		EventKind:    ev.Kind(),
		Payload:      payload,
		CommittedAt:  committedAt,
	}, nil
}

// Replay folds an aggregate's stored event sequence into a projection from
// empty state, stamping update times from the log. Replaying a full sequence
// deterministically reproduces the current projection.
func Replay(entries []Entry) (*permission.Request, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("replay: empty outbox sequence")
	}
	first, err := entries[0].Event()
	if err != nil {
		return nil, err
	}
	created, ok := first.(permission.Created)
	if !ok {
		return nil, fmt.Errorf("replay: first entry is %s, want %s", entries[0].EventKind, permission.KindCreated)
	}
	req := permission.NewFromCreated(created)
	req.Version = 1
	for _, entry := range entries[1:] {
		ev, err := entry.Event()
		if err != nil {
			return nil, err
		}
		permission.Apply(req, ev, entry.CommittedAt)
		req.Version++
	}
	return req, nil
}
