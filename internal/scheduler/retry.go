package scheduler

import (
	"context"
	"log/slog"
	"time"

	"gridgate/internal/permission"
)

// DefaultRetryInterval is how often unsendable requests are re-attempted.
const DefaultRetryInterval = time.Hour

// Sender re-attempts transmission for one stuck request. Implemented by the
// permission service.
type Sender interface {
	RetrySend(ctx context.Context, req *permission.Request) error
}

// SendRetrier periodically re-attempts every request parked in
// UNABLE_TO_SEND. There is no attempt cap; a request leaves the loop only by
// sending successfully or by being terminated externally.
type SendRetrier struct {
	repo     permission.Repository
	sender   Sender
	interval time.Duration
	logger   *slog.Logger
}

func NewSendRetrier(repo permission.Repository, sender Sender, interval time.Duration, logger *slog.Logger) *SendRetrier {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &SendRetrier{repo: repo, sender: sender, interval: interval, logger: logger}
}

func (r *SendRetrier) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass. Exposed for tests and for triggering a pass
// at startup.
func (r *SendRetrier) RunOnce(ctx context.Context) {
	reqs, err := r.repo.ListByStatus(ctx, permission.StatusUnableToSend)
	if err != nil {
		r.logger.ErrorContext(ctx, "list unsendable requests", "error", err)
		return
	}
	for _, req := range reqs {
		if err := r.sender.RetrySend(ctx, req); err != nil {
			r.logger.WarnContext(ctx, "send retry failed",
				"permissionId", req.PermissionID,
				"error", err,
			)
		}
	}
}
