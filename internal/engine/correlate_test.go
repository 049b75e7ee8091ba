package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

func seedRequest(t *testing.T, repo *permission.InMemoryStore, status permission.Status, keys permission.CorrelationKeys, createdAt time.Time) *permission.Request {
	t.Helper()
	req := &permission.Request{
		PermissionID: id.NewPermissionID(),
		ConnectionID: "conn-1",
		Status:       status,
		Keys:         keys,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func TestResolveMatchesEitherKey(t *testing.T) {
	ctx := context.Background()
	repo := permission.NewInMemoryStore()
	resolver := NewResolver(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	now := time.Now()

	byConversation := seedRequest(t, repo, permission.StatusSent,
		permission.CorrelationKeys{ConversationID: "conv-1"}, now)
	byExternal := seedRequest(t, repo, permission.StatusAccepted,
		permission.CorrelationKeys{ExternalRequestID: "ext-1"}, now)

	match, err := resolver.Resolve(ctx, "conv-1", "")
	require.NoError(t, err)
	assert.Equal(t, byConversation.PermissionID, match.PermissionID)

	match, err = resolver.Resolve(ctx, "", "ext-1")
	require.NoError(t, err)
	assert.Equal(t, byExternal.PermissionID, match.PermissionID)
}

func TestResolveIgnoresTerminalAggregates(t *testing.T) {
	ctx := context.Background()
	repo := permission.NewInMemoryStore()
	resolver := NewResolver(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	seedRequest(t, repo, permission.StatusRejected,
		permission.CorrelationKeys{ConversationID: "conv-1"}, time.Now())

	_, err := resolver.Resolve(ctx, "conv-1", "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestResolveWithoutKeysFails(t *testing.T) {
	resolver := NewResolver(permission.NewInMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	_, err := resolver.Resolve(context.Background(), "", "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestResolveMultiMatchPicksEarliestCreated(t *testing.T) {
	ctx := context.Background()
	repo := permission.NewInMemoryStore()
	resolver := NewResolver(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	later := seedRequest(t, repo, permission.StatusSent,
		permission.CorrelationKeys{ConversationID: "conv-1"}, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	earliest := seedRequest(t, repo, permission.StatusSent,
		permission.CorrelationKeys{ConversationID: "conv-1"}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	match, err := resolver.Resolve(ctx, "conv-1", "")
	require.NoError(t, err)
	assert.Equal(t, earliest.PermissionID, match.PermissionID)
	assert.NotEqual(t, later.PermissionID, match.PermissionID)
}
