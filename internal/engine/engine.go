// Package engine is the shared permission-request process engine. One Engine
// is instantiated per region connector, all sharing the projection repository
// and the outbox; only the transition table differs.
//
// Commit is the sole mutation path: it appends the event to the outbox,
// applies it to the projection under an optimistic concurrency precondition,
// and publishes to subscribers. Direct field mutation outside Commit is
// forbidden.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gridgate/internal/engine/outbox"
	"gridgate/internal/permission"
	"gridgate/internal/platform/metrics"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock uses system time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Subscriber reacts to committed events (status emitters, data-retrieval
// triggers). Subscriber errors are logged, never propagated: the event is
// already durably recorded, so downstream delivery failures must not unwind
// the commit.
type Subscriber interface {
	EventCommitted(ctx context.Context, req *permission.Request, ev permission.Event) error
}

// Result reports the outcome of a commit.
type Result struct {
	Request *permission.Request
	// Dropped is set when the event addressed a terminal aggregate and was
	// logged and discarded instead of applied. Not an error: administrators
	// may resend messages after termination.
	Dropped bool
}

// Engine applies events for one region connector.
type Engine struct {
	region  id.Region
	table   Table
	repo    permission.Repository
	log     outbox.Store
	tx      Tx
	subs    []Subscriber
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   Clock
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTx sets the transaction boundary for commits (SQL deployments).
func WithTx(t Tx) Option {
	return func(e *Engine) { e.tx = t }
}

// WithClock injects a clock for deterministic tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSubscribers registers commit subscribers.
func WithSubscribers(subs ...Subscriber) Option {
	return func(e *Engine) { e.subs = append(e.subs, subs...) }
}

// New builds an engine for one region connector.
func New(region id.Region, table Table, repo permission.Repository, log outbox.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		region: region,
		table:  table,
		repo:   repo,
		log:    log,
		tx:     NopTx{},
		logger: logger,
		clock:  SystemClock{},
		tracer: otel.Tracer("gridgate/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Region returns the region this engine serves.
func (e *Engine) Region() id.Region { return e.region }

// Commit validates, appends, applies, and publishes one event.
//
// Semantics:
//   - Created events build a new aggregate; a duplicate permission id is a
//     conflict.
//   - Events addressed to a terminal aggregate are logged and dropped unless
//     the table explicitly allows the transition (the supersession and
//     compensating-retry escapes).
//   - Illegal transitions on a live aggregate are rejected with
//     sentinel.ErrIllegalTransition, never silently applied.
//   - A version mismatch surfaces sentinel.ErrConflict; the caller must
//     re-read and retry.
func (e *Engine) Commit(ctx context.Context, ev permission.Event) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Commit", trace.WithAttributes(
		attribute.String("permission.id", ev.Permission().String()),
		attribute.String("event.kind", string(ev.Kind())),
		attribute.String("region", e.region.String()),
	))
	defer span.End()

	if created, ok := ev.(permission.Created); ok {
		return e.commitCreated(ctx, created)
	}

	current, err := e.repo.Get(ctx, ev.Permission())
	if err != nil {
		return Result{}, err
	}

	if !e.legal(current.Status, ev) {
		if current.Status.Terminal() {
			// Administrators may resend after termination; favour
			// availability over failing loudly.
			e.logger.WarnContext(ctx, "event dropped: aggregate terminal",
				"permission_id", current.PermissionID,
				"status", current.Status,
				"event_kind", ev.Kind(),
			)
			if e.metrics != nil {
				e.metrics.EventsDropped.WithLabelValues(string(ev.Kind())).Inc()
			}
			return Result{Request: current, Dropped: true}, nil
		}
		if e.metrics != nil {
			e.metrics.TransitionsRejected.Inc()
		}
		return Result{}, fmt.Errorf("apply %s in %s: %w", ev.Kind(), current.Status, sentinel.ErrIllegalTransition)
	}

	now := e.clock.Now()
	next := current.Clone()
	permission.Apply(next, ev, now)

	entry, err := outbox.NewEntry(ev, now)
	if err != nil {
		return Result{}, err
	}

	err = e.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := e.log.Append(ctx, entry); err != nil {
			return err
		}
		return e.repo.Update(ctx, next, current.Version)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) && e.metrics != nil {
			e.metrics.CommitConflicts.Inc()
		}
		return Result{}, err
	}

	e.afterCommit(ctx, next, ev)
	return Result{Request: next}, nil
}

func (e *Engine) commitCreated(ctx context.Context, ev permission.Created) (Result, error) {
	now := e.clock.Now()
	if ev.At.IsZero() {
		ev.At = now
	}
	req := permission.NewFromCreated(ev)

	entry, err := outbox.NewEntry(ev, now)
	if err != nil {
		return Result{}, err
	}

	err = e.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := e.log.Append(ctx, entry); err != nil {
			return err
		}
		return e.repo.Create(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}

	e.afterCommit(ctx, req, ev)
	return Result{Request: req}, nil
}

// legal resolves whether ev may be applied in state. Non-transitioning kinds
// are accepted on any live aggregate.
func (e *Engine) legal(state permission.Status, ev permission.Event) bool {
	if _, transitions := permission.TargetStatus(ev); !transitions {
		return state.Live()
	}
	return e.table.Allowed(state, ev.Kind())
}

func (e *Engine) afterCommit(ctx context.Context, req *permission.Request, ev permission.Event) {
	if e.metrics != nil {
		e.metrics.EventsCommitted.WithLabelValues(string(ev.Kind())).Inc()
	}
	for _, sub := range e.subs {
		if err := sub.EventCommitted(ctx, req, ev); err != nil {
			e.logger.WarnContext(ctx, "commit subscriber failed",
				"permission_id", req.PermissionID,
				"event_kind", ev.Kind(),
				"error", err.Error(),
			)
		}
	}
}

// Replay rebuilds the projection for one aggregate from its outbox sequence.
func (e *Engine) Replay(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error) {
	entries, err := e.log.ListByPermission(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("replay %s: %w", permissionID, sentinel.ErrNotFound)
	}
	return outbox.Replay(entries)
}
