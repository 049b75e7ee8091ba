package permission

import (
	"context"
	"time"

	id "gridgate/pkg/domain"
)

// Repository is the projection store for permission requests. It is the only
// shared mutable resource in the system; every mutation goes through Update
// with an expected version so concurrent commits fail with
// sentinel.ErrConflict instead of overwriting each other.
//
// Stores are interface-driven so domain logic stays testable and the
// in-memory and PostgreSQL implementations satisfy the same contract. A
// different contract per deployment mode is explicitly not allowed.
type Repository interface {
	// Create persists a new aggregate at version 1.
	Create(ctx context.Context, req *Request) error

	// Get returns the aggregate or sentinel.ErrNotFound.
	Get(ctx context.Context, permissionID id.PermissionID) (*Request, error)

	// Update persists the aggregate if its stored version still equals
	// expectedVersion, bumping the version by one. Returns
	// sentinel.ErrConflict on a precondition mismatch.
	Update(ctx context.Context, req *Request, expectedVersion int64) error

	// FindLiveByCorrelation returns live (non-terminal) aggregates matching
	// either correlation key (OR-match: the administrator may populate only
	// one on first contact). Results are ordered by creation time so the
	// defensive first-match policy is stable.
	FindLiveByCorrelation(ctx context.Context, conversationID id.ConversationID, externalRequestID id.ExternalRequestID) ([]*Request, error)

	// ListByConnection returns all aggregates created for a caller handle.
	ListByConnection(ctx context.Context, connectionID id.ConnectionID) ([]*Request, error)

	// ListByStatus returns all aggregates currently in the given status.
	ListByStatus(ctx context.Context, status Status) ([]*Request, error)

	// ListStale returns aggregates in any of the given statuses whose last
	// update is older than the cutoff. Used by the timeout sweeper.
	ListStale(ctx context.Context, statuses []Status, cutoff time.Time) ([]*Request, error)
}
