package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gridgate/internal/engine"
	"gridgate/internal/permission"
	"gridgate/internal/platform/metrics"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

const (
	// DefaultAnswerTimeout is how long a request may sit in SENT or
	// PENDING_ACKNOWLEDGEMENT before it is timed out.
	DefaultAnswerTimeout = 14 * 24 * time.Hour

	// DefaultSweepInterval is how often the sweepers scan.
	DefaultSweepInterval = 5 * time.Minute
)

// Sweeper times out requests the administrator never answered and closes
// accepted requests whose timeframe has passed. Both passes are idempotent:
// a version conflict means a concurrent commit already moved the aggregate,
// and the sweep simply picks it up again next round if it still qualifies.
type Sweeper struct {
	repo     permission.Repository
	engines  map[id.Region]*engine.Engine
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

type SweeperOption func(*Sweeper)

func WithAnswerTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.timeout = d }
}

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

func WithSweeperClock(clock func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.clock = clock }
}

func NewSweeper(repo permission.Repository, engines map[id.Region]*engine.Engine, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		engines:  engines,
		timeout:  DefaultAnswerTimeout,
		interval: DefaultSweepInterval,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepTimeouts(ctx)
			s.SweepFulfilled(ctx)
		}
	}
}

// SweepTimeouts moves unanswered requests to TIMED_OUT.
func (s *Sweeper) SweepTimeouts(ctx context.Context) {
	cutoff := s.clock().Add(-s.timeout)
	stale, err := s.repo.ListStale(ctx, []permission.Status{
		permission.StatusSent,
		permission.StatusPendingAcknowledgement,
	}, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "list stale requests", "error", err)
		return
	}

	for _, req := range stale {
		if !s.commit(ctx, req, permission.TimedOut{PermissionID: req.PermissionID}) {
			continue
		}
		if s.metrics != nil {
			s.metrics.TimeoutsSwept.Inc()
		}
		s.logger.InfoContext(ctx, "request timed out",
			"permissionId", req.PermissionID,
			"status", req.Status,
		)
	}
}

// SweepFulfilled closes accepted requests whose permission window has ended.
func (s *Sweeper) SweepFulfilled(ctx context.Context) {
	now := s.clock()
	accepted, err := s.repo.ListByStatus(ctx, permission.StatusAccepted)
	if err != nil {
		s.logger.ErrorContext(ctx, "list accepted requests", "error", err)
		return
	}

	for _, req := range accepted {
		if req.Timeframe.End.After(now) {
			continue
		}
		if !s.commit(ctx, req, permission.Fulfilled{PermissionID: req.PermissionID}) {
			continue
		}
		s.logger.InfoContext(ctx, "request fulfilled", "permissionId", req.PermissionID)
	}
}

// commit applies one sweep event, treating a lost race as a no-op.
func (s *Sweeper) commit(ctx context.Context, req *permission.Request, ev permission.Event) bool {
	eng, ok := s.engines[req.DataSource.Region]
	if !ok {
		s.logger.ErrorContext(ctx, "no engine for stored region",
			"permissionId", req.PermissionID,
			"region", req.DataSource.Region,
		)
		return false
	}
	_, err := eng.Commit(ctx, ev)
	if errors.Is(err, sentinel.ErrConflict) {
		return false
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep commit failed",
			"permissionId", req.PermissionID,
			"event", ev.Kind(),
			"error", err,
		)
		return false
	}
	return true
}
