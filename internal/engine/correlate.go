package engine

import (
	"context"
	"fmt"
	"log/slog"

	"gridgate/internal/permission"
	"gridgate/internal/platform/metrics"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// Resolver maps an inbound protocol notification to the pending request it
// belongs to, using the conversation id and/or the administrator-assigned
// request id. The administrator may populate only one key on first contact,
// so the lookup is an OR-match.
type Resolver struct {
	repo    permission.Repository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewResolver(repo permission.Repository, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{repo: repo, logger: logger, metrics: m}
}

// Resolve returns the live aggregate the keys correlate to.
//
// Zero matches is not an error per se; the notification may simply have
// arrived before its logical prerequisite. sentinel.ErrNotFound tells the
// caller to hand it to the resend scheduler for one bounded redelivery.
//
// More than one match should never occur under a correctly persisted
// correlation mapping; the resolver defensively processes only the earliest
// created aggregate and logs at error severity.
func (r *Resolver) Resolve(ctx context.Context, conversationID id.ConversationID, externalRequestID id.ExternalRequestID) (*permission.Request, error) {
	if conversationID == "" && externalRequestID == "" {
		return nil, fmt.Errorf("resolve notification: no correlation keys: %w", sentinel.ErrNotFound)
	}

	matches, err := r.repo.FindLiveByCorrelation(ctx, conversationID, externalRequestID)
	if err != nil {
		return nil, fmt.Errorf("resolve notification: %w", err)
	}

	switch len(matches) {
	case 0:
		if r.metrics != nil {
			r.metrics.CorrelationMisses.Inc()
		}
		return nil, fmt.Errorf("resolve notification conversation=%s external=%s: %w",
			conversationID, externalRequestID, sentinel.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		if r.metrics != nil {
			r.metrics.CorrelationMulti.Inc()
		}
		r.logger.ErrorContext(ctx, "multiple live aggregates matched one correlation query",
			"conversation_id", conversationID,
			"external_request_id", externalRequestID,
			"matches", len(matches),
			"chosen", matches[0].PermissionID,
		)
		return matches[0], nil
	}
}
