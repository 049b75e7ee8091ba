package permission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

func newStoredRequest(t *testing.T, store *InMemoryStore, mutate func(*Request)) *Request {
	t.Helper()
	req := &Request{
		PermissionID: id.NewPermissionID(),
		ConnectionID: "conn-1",
		DataNeedID:   "need-1",
		Status:       StatusCreated,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(req)
	}
	require.NoError(t, store.Create(context.Background(), req))
	return req
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := NewInMemoryStore()
	req := newStoredRequest(t, store, nil)

	err := store.Create(context.Background(), req)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestUpdateEnforcesVersionPrecondition(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	req := newStoredRequest(t, store, nil)
	require.Equal(t, int64(1), req.Version)

	req.Status = StatusValidated
	require.NoError(t, store.Update(ctx, req, 1))
	assert.Equal(t, int64(2), req.Version)

	// A writer still holding version 1 must be rejected.
	stale := req.Clone()
	stale.Status = StatusSent
	err := store.Update(ctx, stale, 1)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	stored, err := store.Get(ctx, req.PermissionID)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, stored.Status)
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	req := newStoredRequest(t, store, nil)

	first, err := store.Get(ctx, req.PermissionID)
	require.NoError(t, err)
	first.Status = StatusRevoked

	second, err := store.Get(ctx, req.PermissionID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, second.Status)
}

func TestFindLiveByCorrelationIsOrMatch(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	req := newStoredRequest(t, store, func(r *Request) {
		r.Status = StatusSent
		r.Keys = CorrelationKeys{ConversationID: "conv-1", ExternalRequestID: "ext-1"}
	})

	byConversation, err := store.FindLiveByCorrelation(ctx, "conv-1", "")
	require.NoError(t, err)
	require.Len(t, byConversation, 1)
	assert.Equal(t, req.PermissionID, byConversation[0].PermissionID)

	byExternal, err := store.FindLiveByCorrelation(ctx, "", "ext-1")
	require.NoError(t, err)
	require.Len(t, byExternal, 1)

	both, err := store.FindLiveByCorrelation(ctx, "conv-1", "ext-other")
	require.NoError(t, err)
	require.Len(t, both, 1)

	none, err := store.FindLiveByCorrelation(ctx, "conv-other", "ext-other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindLiveByCorrelationExcludesTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	newStoredRequest(t, store, func(r *Request) {
		r.Status = StatusTimedOut
		r.Keys = CorrelationKeys{ConversationID: "conv-1"}
	})

	matches, err := store.FindLiveByCorrelation(ctx, "conv-1", "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestListStaleFiltersByStatusAndAge(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	cutoff := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	stale := newStoredRequest(t, store, func(r *Request) {
		r.Status = StatusSent
		r.UpdatedAt = cutoff.Add(-time.Hour)
	})
	newStoredRequest(t, store, func(r *Request) {
		r.Status = StatusSent
		r.UpdatedAt = cutoff.Add(time.Hour)
	})
	newStoredRequest(t, store, func(r *Request) {
		r.Status = StatusAccepted
		r.UpdatedAt = cutoff.Add(-time.Hour)
	})

	matches, err := store.ListStale(ctx, []Status{StatusSent, StatusPendingAcknowledgement}, cutoff)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, stale.PermissionID, matches[0].PermissionID)
}
