// Package scheduler holds the background jobs: the delayed notification
// resend queue, the hourly retry of unsendable requests, and the staleness
// sweeps. Every job follows the same shape, a Run(ctx) loop on a ticker that
// exits when the context is cancelled.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"gridgate/internal/connector"
	id "gridgate/pkg/domain"
)

// DefaultResendDelay is how long an uncorrelatable notification waits before
// its single re-delivery attempt.
const DefaultResendDelay = 30 * time.Second

// Entry is one parked notification awaiting re-delivery.
type Entry struct {
	Region       id.Region              `json:"region"`
	Notification connector.Notification `json:"notification"`
	Attempt      int                    `json:"attempt"`
	DueAt        time.Time              `json:"dueAt"`
}

// Queue stores parked notifications ordered by due time.
type Queue interface {
	Push(ctx context.Context, entry Entry) error
	// PopDue removes and returns every entry due at or before now.
	PopDue(ctx context.Context, now time.Time) ([]Entry, error)
}

// Handler re-processes a parked notification. Implemented by the permission
// service.
type Handler interface {
	HandleNotification(ctx context.Context, region id.Region, n *connector.Notification, attempt int) error
}

// Resend parks notifications whose correlation keys matched nothing and
// re-delivers each exactly once after a fixed delay. A second miss is final;
// the handler drops and logs it.
type Resend struct {
	queue    Queue
	handler  Handler
	delay    time.Duration
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

type ResendOption func(*Resend)

func WithResendDelay(d time.Duration) ResendOption {
	return func(r *Resend) { r.delay = d }
}

func WithResendInterval(d time.Duration) ResendOption {
	return func(r *Resend) { r.interval = d }
}

func WithResendClock(clock func() time.Time) ResendOption {
	return func(r *Resend) { r.clock = clock }
}

func NewResend(queue Queue, handler Handler, logger *slog.Logger, opts ...ResendOption) *Resend {
	r := &Resend{
		queue:    queue,
		handler:  handler,
		delay:    DefaultResendDelay,
		interval: time.Second,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetHandler binds the re-delivery target. The queue and the handler depend
// on each other at construction time, so the handler is bound late. Must be
// called before Run.
func (r *Resend) SetHandler(h Handler) {
	r.handler = h
}

// Schedule parks a notification for one deferred re-delivery.
func (r *Resend) Schedule(ctx context.Context, region id.Region, n *connector.Notification) error {
	return r.queue.Push(ctx, Entry{
		Region:       region,
		Notification: *n,
		Attempt:      1,
		DueAt:        r.clock().Add(r.delay),
	})
}

// Run drains due entries until ctx is cancelled.
func (r *Resend) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Resend) drain(ctx context.Context) {
	entries, err := r.queue.PopDue(ctx, r.clock())
	if err != nil {
		r.logger.ErrorContext(ctx, "pop due resends", "error", err)
		return
	}
	for _, entry := range entries {
		n := entry.Notification
		if err := r.handler.HandleNotification(ctx, entry.Region, &n, entry.Attempt); err != nil {
			r.logger.ErrorContext(ctx, "re-deliver notification",
				"region", entry.Region,
				"conversationId", n.ConversationID,
				"error", err,
			)
		}
	}
}
