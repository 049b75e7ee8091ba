package service

import (
	"context"
	"errors"
	"fmt"

	"gridgate/internal/connector"
	"gridgate/internal/dataneed"
	"gridgate/internal/engine"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// HandleInbound decodes a raw administrator callback for the region and
// processes it. The returned DeliveryResult is what the transport reports
// back: payloads that cannot belong to this system are rejected outright,
// concurrency conflicts and out-of-order notifications ask the administrator
// to redeliver.
func (s *Service) HandleInbound(ctx context.Context, region id.Region, payload []byte) (connector.DeliveryResult, error) {
	conn, err := s.registry.Get(region)
	if err != nil {
		return connector.DeliveryRejected, err
	}
	notification, err := conn.Decode(payload)
	if err != nil {
		return connector.DeliveryRejected, fmt.Errorf("decode %s notification: %w", region, err)
	}

	err = s.HandleNotification(ctx, region, notification, 0)
	switch {
	case err == nil:
		return connector.DeliverySuccess, nil
	case errors.Is(err, sentinel.ErrConflict):
		return connector.DeliveryTemporaryError, err
	case errors.Is(err, sentinel.ErrIllegalTransition):
		// The notification correlated to a live aggregate but arrived ahead
		// of the transition it depends on, such as an acceptance webhook
		// racing the send acknowledgement. Redelivery will land it.
		return connector.DeliveryTemporaryError, err
	default:
		return connector.DeliveryRejected, err
	}
}

// HandleNotification correlates a decoded notification to its aggregate and
// commits the mapped events. attempt counts prior deliveries of the same
// notification through the resend queue; a fresh notification arrives with
// attempt 0 and gets exactly one deferred retry when correlation misses.
func (s *Service) HandleNotification(ctx context.Context, region id.Region, n *connector.Notification, attempt int) error {
	req, err := s.resolver.Resolve(ctx, n.ConversationID, n.ExternalRequestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		if attempt == 0 && s.resend != nil {
			if err := s.resend.Schedule(ctx, region, n); err != nil {
				return fmt.Errorf("schedule notification resend: %w", err)
			}
			if s.metrics != nil {
				s.metrics.ResendsScheduled.Inc()
			}
			return nil
		}
		if s.metrics != nil {
			s.metrics.ResendsDropped.Inc()
		}
		s.logger.WarnContext(ctx, "dropping uncorrelatable notification",
			"region", region,
			"conversationId", n.ConversationID,
			"externalRequestId", n.ExternalRequestID,
			"outcome", n.Outcome,
		)
		return nil
	}
	if err != nil {
		return err
	}

	eng, engErr := s.engine(region)
	if engErr != nil {
		return engErr
	}

	switch n.Outcome {
	case connector.OutcomeAcknowledged:
		_, err = eng.Commit(ctx, permission.Sent{
			PermissionID:   req.PermissionID,
			ConversationID: req.Keys.ConversationID,
		})
		return err

	case connector.OutcomeAccepted:
		return s.handleAccepted(ctx, eng, req, n)

	case connector.OutcomeRejected:
		return s.handleRejected(ctx, eng, req, n)

	case connector.OutcomeAnswer:
		_, err = eng.Commit(ctx, permission.Answer{
			PermissionID:  req.PermissionID,
			GenericStatus: n.GenericStatus,
			Message:       n.Message,
		})
		return err

	case connector.OutcomeRevoked:
		_, err = eng.Commit(ctx, permission.ExternallyTerminated{
			PermissionID: req.PermissionID,
			Message:      n.Message,
		})
		return err

	case connector.OutcomeTerminationConfirmed:
		// The administrator, not the caller, performed the actual
		// termination, so the aggregate closes as externally terminated.
		_, err = eng.Commit(ctx, permission.ExternallyTerminated{
			PermissionID: req.PermissionID,
			Message:      n.Message,
		})
		return err

	case connector.OutcomeReadings:
		_, err = eng.Commit(ctx, permission.PollingWatermark{
			PermissionID: req.PermissionID,
			Readings:     n.Readings,
		})
		return err

	default:
		return fmt.Errorf("handle notification: unknown outcome %q", n.Outcome)
	}
}

// handleAccepted commits the acceptance and fans any extra consent grants out
// into child aggregates, one per grant, each carrying its own metering point
// and consent but inheriting everything else from the parent.
func (s *Service) handleAccepted(ctx context.Context, eng *engine.Engine, req *permission.Request, n *connector.Notification) error {
	if len(n.Grants) == 0 {
		return fmt.Errorf("handle acceptance for %s: no consent grants", req.PermissionID)
	}

	first := n.Grants[0]
	if _, err := eng.Commit(ctx, permission.Accepted{
		PermissionID:      req.PermissionID,
		ExternalRequestID: first.ExternalRequestID,
		MeteringPointID:   first.MeteringPointID,
		ConsentID:         first.ConsentID,
	}); err != nil {
		return err
	}

	for _, grant := range n.Grants[1:] {
		if err := s.spawnChild(ctx, eng, req, grant); err != nil {
			return fmt.Errorf("fan out consent grant %s: %w", grant.ConsentID, err)
		}
	}
	return nil
}

// spawnChild creates a full aggregate for one extra consent grant. The child
// never touches the wire: the administrator already holds the consent, so
// the send is recorded with a fresh conversation id and the acceptance
// committed immediately after.
func (s *Service) spawnChild(ctx context.Context, eng *engine.Engine, parent *permission.Request, grant connector.ConsentGrant) error {
	childID := id.NewPermissionID()
	events := []permission.Event{
		permission.Created{
			PermissionID: childID,
			ConnectionID: parent.ConnectionID,
			DataNeedID:   parent.DataNeedID,
			Timeframe:    parent.Timeframe,
			Granularity:  parent.Granularity,
			DataSource:   parent.DataSource,
			At:           s.clock.Now(),
		},
		permission.Validated{PermissionID: childID, Granularity: parent.Granularity},
		permission.Sent{PermissionID: childID, ConversationID: id.NewConversationID()},
		permission.Accepted{
			PermissionID:      childID,
			ExternalRequestID: grant.ExternalRequestID,
			MeteringPointID:   grant.MeteringPointID,
			ConsentID:         grant.ConsentID,
		},
	}
	for _, ev := range events {
		if _, err := eng.Commit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// handleRejected commits the rejection, then checks whether a coarser
// granularity can satisfy the data need. If one exists the request is
// re-validated at that granularity and sent again; the rejection stays in the
// event history.
func (s *Service) handleRejected(ctx context.Context, eng *engine.Engine, req *permission.Request, n *connector.Notification) error {
	result, err := eng.Commit(ctx, permission.Rejected{
		PermissionID: req.PermissionID,
		Reason:       n.Reason,
		Message:      n.Message,
		Invalid:      n.Invalid,
	})
	if err != nil {
		return err
	}
	req = result.Request
	if result.Dropped || n.Invalid || n.Reason != permission.ReasonGranularityNotDeliverable {
		return nil
	}

	calc, err := s.dataNeeds.Calculate(ctx, req.DataNeedID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("recalculate data need for downgrade: %w", err)
	}
	if calc.Kind != dataneed.ResultValidatedHistorical {
		return nil
	}
	coarser, ok := calc.NextCoarser(req.Granularity)
	if !ok {
		s.logger.InfoContext(ctx, "no coarser granularity available, rejection stands",
			"permissionId", req.PermissionID,
			"granularity", req.Granularity,
		)
		return nil
	}

	result, err = eng.Commit(ctx, permission.Validated{
		PermissionID: req.PermissionID,
		Granularity:  coarser,
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "retrying at coarser granularity",
		"permissionId", req.PermissionID,
		"granularity", coarser,
	)

	conn, err := s.registry.Get(req.DataSource.Region)
	if err != nil {
		return err
	}
	_, err = s.send(ctx, conn, eng, result.Request)
	return err
}

// RetrySend re-attempts transmission for a request stuck in UNABLE_TO_SEND.
// Called by the hourly retry job.
func (s *Service) RetrySend(ctx context.Context, req *permission.Request) error {
	if req.Status != permission.StatusUnableToSend {
		return nil
	}
	eng, err := s.engine(req.DataSource.Region)
	if err != nil {
		return err
	}
	conn, err := s.registry.Get(req.DataSource.Region)
	if err != nil {
		return err
	}
	result, err := eng.Commit(ctx, permission.Validated{
		PermissionID: req.PermissionID,
		Granularity:  req.Granularity,
	})
	if err != nil {
		return err
	}
	_, err = s.send(ctx, conn, eng, result.Request)
	return err
}
