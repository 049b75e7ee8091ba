package status

import (
	"context"

	"gridgate/internal/permission"
	"gridgate/internal/platform/metrics"
)

// Subscriber bridges committed engine events to an Emitter. Only events that
// change the externally visible status are published.
type Subscriber struct {
	emitter Emitter
	metrics *metrics.Metrics
}

func NewSubscriber(emitter Emitter, m *metrics.Metrics) *Subscriber {
	return &Subscriber{emitter: emitter, metrics: m}
}

func (s *Subscriber) EventCommitted(ctx context.Context, req *permission.Request, ev permission.Event) error {
	status, transitions := permission.TargetStatus(ev)
	if !transitions {
		return nil
	}
	if err := s.emitter.Emit(ctx, Message{
		PermissionID:  req.PermissionID,
		ConnectionID:  req.ConnectionID,
		DataNeedID:    req.DataNeedID,
		Administrator: req.DataSource.Administrator,
		Region:        req.DataSource.Region,
		Status:        status,
		EventKind:     ev.Kind(),
		Message:       req.ErrorMessage,
		OccurredAt:    req.UpdatedAt,
	}); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.StatusEmitted.Inc()
	}
	return nil
}
