// Package service orchestrates the permission-request lifecycle: creation and
// validation, the outbound send path, inbound notification handling with
// acceptance fan-out and the granularity-downgrade retry, and the
// caller-facing terminate/revoke operations. All state changes go through the
// per-region engines; the service never mutates a projection directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gridgate/internal/connector"
	"gridgate/internal/dataneed"
	"gridgate/internal/engine"
	"gridgate/internal/permission"
	"gridgate/internal/platform/metrics"
	id "gridgate/pkg/domain"
	dErrors "gridgate/pkg/domain-errors"
	"gridgate/pkg/platform/circuit"
	"gridgate/pkg/platform/sentinel"
)

// ResendScheduler re-delivers notifications that failed correlation, exactly
// once after a fixed delay. Implemented by internal/scheduler.
type ResendScheduler interface {
	Schedule(ctx context.Context, region id.Region, notification *connector.Notification) error
}

// DataNeeds is the read-only data need collaborator.
type DataNeeds interface {
	Calculate(ctx context.Context, dataNeedID id.DataNeedID, referenceTime time.Time) (dataneed.Result, error)
}

// Service wires the engines, connectors, and schedulers together.
type Service struct {
	repo      permission.Repository
	engines   map[id.Region]*engine.Engine
	resolver  *engine.Resolver
	registry  *connector.Registry
	dataNeeds DataNeeds
	resend    ResendScheduler
	breakers  map[id.Region]*circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     engine.Clock
}

// Config bundles the service dependencies.
type Config struct {
	Repository permission.Repository
	Engines    map[id.Region]*engine.Engine
	Resolver   *engine.Resolver
	Registry   *connector.Registry
	DataNeeds  DataNeeds
	Resend     ResendScheduler
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Clock      engine.Clock
}

func New(cfg Config) (*Service, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("permission repository is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("connector registry is required")
	}
	if cfg.DataNeeds == nil {
		return nil, fmt.Errorf("data need service is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = engine.SystemClock{}
	}

	breakers := make(map[id.Region]*circuit.Breaker)
	for _, region := range cfg.Registry.Regions() {
		breakers[region] = circuit.New("adapter-"+region.String(),
			circuit.WithClock(cfg.Clock.Now),
		)
	}

	return &Service{
		repo:      cfg.Repository,
		engines:   cfg.Engines,
		resolver:  cfg.Resolver,
		registry:  cfg.Registry,
		dataNeeds: cfg.DataNeeds,
		resend:    cfg.Resend,
		breakers:  breakers,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
	}, nil
}

func (s *Service) engine(region id.Region) (*engine.Engine, error) {
	eng, ok := s.engines[region]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "no engine for region %q", region)
	}
	return eng, nil
}

// CreateParams are the caller's inputs for a new permission request.
type CreateParams struct {
	ConnectionID    id.ConnectionID
	DataNeedID      id.DataNeedID
	Region          id.Region
	Administrator   string
	MeteringPointID id.MeteringPointID
	Granularity     permission.Granularity
	Timeframe       permission.Timeframe
}

// Create runs the full creation path: CREATED, then VALIDATED or MALFORMED,
// and for a valid request the outbound send. The returned aggregate reflects
// the state after the send attempt.
func (s *Service) Create(ctx context.Context, params CreateParams) (*permission.Request, error) {
	conn, err := s.registry.Get(params.Region)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unsupported region")
	}
	eng, err := s.engine(params.Region)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	created := permission.Created{
		PermissionID: id.NewPermissionID(),
		ConnectionID: params.ConnectionID,
		DataNeedID:   params.DataNeedID,
		Timeframe:    params.Timeframe,
		Granularity:  params.Granularity,
		DataSource: permission.DataSource{
			Administrator: params.Administrator,
			Region:        params.Region,
		},
		MeteringPointID: params.MeteringPointID,
		At:              now,
	}
	result, err := eng.Commit(ctx, created)
	if err != nil {
		return nil, fmt.Errorf("create permission request: %w", err)
	}
	req := result.Request

	validation, validationErrors, err := s.validate(ctx, params, now)
	if err != nil {
		return nil, err
	}
	if len(validationErrors) > 0 {
		result, err = eng.Commit(ctx, permission.Malformed{
			PermissionID: req.PermissionID,
			Errors:       validationErrors,
		})
		if err != nil {
			return nil, err
		}
		return result.Request, nil
	}

	result, err = eng.Commit(ctx, permission.Validated{
		PermissionID: req.PermissionID,
		Granularity:  validation,
	})
	if err != nil {
		return nil, err
	}

	return s.send(ctx, conn, eng, result.Request)
}

// validate consults the data need service. It returns the effective
// granularity for a valid request, or the field-level errors for a malformed
// one.
func (s *Service) validate(ctx context.Context, params CreateParams, now time.Time) (permission.Granularity, []string, error) {
	if params.ConnectionID == "" {
		return "", []string{"connectionId: must not be empty"}, nil
	}

	calc, err := s.dataNeeds.Calculate(ctx, params.DataNeedID, now)
	if err != nil {
		return "", nil, err
	}

	switch calc.Kind {
	case dataneed.ResultNotFound:
		return "", []string{fmt.Sprintf("dataNeedId: %s not found", params.DataNeedID)}, nil
	case dataneed.ResultNotSupported:
		return "", []string{fmt.Sprintf("dataNeedId: not supported: %s", calc.Reason)}, nil
	case dataneed.ResultAccountingPoint:
		// Master data requests carry no timeseries granularity.
		return params.Granularity, nil, nil
	case dataneed.ResultValidatedHistorical:
		granularity := params.Granularity
		if granularity == "" {
			granularity = calc.Granularities[0]
		}
		var errs []string
		supported := false
		for _, g := range calc.Granularities {
			if g == granularity {
				supported = true
				break
			}
		}
		if !supported {
			errs = append(errs, fmt.Sprintf("granularity: %s not offered by data need", granularity))
		}
		if params.Timeframe.Start.Before(calc.Timeframe.Start) || params.Timeframe.End.After(calc.Timeframe.End) {
			errs = append(errs, "timeframe: outside the window allowed by the data need")
		}
		if !params.Timeframe.End.After(params.Timeframe.Start) {
			errs = append(errs, "timeframe: end must be after start")
		}
		return granularity, errs, nil
	default:
		return "", nil, fmt.Errorf("validate: unexpected data need result %q", calc.Kind)
	}
}

// send runs one outbound transmission attempt. A transport failure is
// converted synchronously to UNABLE_TO_SEND; there is no inline retry loop,
// the hourly job owns every re-attempt.
func (s *Service) send(ctx context.Context, conn connector.Connector, eng *engine.Engine, req *permission.Request) (*permission.Request, error) {
	conversationID := id.NewConversationID()
	breaker := s.breakers[conn.Region()]

	var sendErr error
	if breaker != nil && breaker.IsOpen() {
		sendErr = fmt.Errorf("send to %s: %w", conn.Region(), sentinel.ErrUnavailable)
	} else {
		sendErr = conn.Adapter().Send(ctx, connector.Outbound{
			Request:        req,
			ConversationID: conversationID,
		})
		if breaker != nil {
			if sendErr != nil {
				if _, change := breaker.RecordFailure(); change.Opened {
					s.logger.WarnContext(ctx, "adapter circuit opened", "region", conn.Region())
				}
			} else if _, change := breaker.RecordSuccess(); change.Closed {
				s.logger.InfoContext(ctx, "adapter circuit closed", "region", conn.Region())
			}
		}
	}

	if sendErr != nil {
		if s.metrics != nil {
			s.metrics.Sends.WithLabelValues("failure").Inc()
		}
		result, err := eng.Commit(ctx, permission.UnableToSend{
			PermissionID: req.PermissionID,
			Reason:       sendErr.Error(),
		})
		if err != nil {
			return nil, err
		}
		return result.Request, nil
	}

	if s.metrics != nil {
		s.metrics.Sends.WithLabelValues("success").Inc()
	}

	var ev permission.Event
	if conn.AcknowledgesSend() {
		ev = permission.PendingAcknowledgement{PermissionID: req.PermissionID, ConversationID: conversationID}
	} else {
		ev = permission.Sent{PermissionID: req.PermissionID, ConversationID: conversationID}
	}
	result, err := eng.Commit(ctx, ev)
	if err != nil {
		return nil, err
	}
	return result.Request, nil
}

// Get returns one permission request.
func (s *Service) Get(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error) {
	req, err := s.repo.Get(ctx, permissionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "permission request not found")
	}
	return req, err
}

// ListByConnection returns all requests created under a caller handle.
func (s *Service) ListByConnection(ctx context.Context, connectionID id.ConnectionID) ([]*permission.Request, error) {
	return s.repo.ListByConnection(ctx, connectionID)
}

// Terminate ends an accepted permission on the caller's initiative. Regions
// whose administrator must confirm the termination park the aggregate in
// REQUIRES_EXTERNAL_TERMINATION; the confirmation notification completes it.
func (s *Service) Terminate(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error) {
	req, err := s.Get(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	eng, err := s.engine(req.DataSource.Region)
	if err != nil {
		return nil, err
	}
	conn, err := s.registry.Get(req.DataSource.Region)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "connector missing for stored region")
	}

	var ev permission.Event
	if conn.ConfirmsTermination() {
		// Round-trip protocols report the termination upstream and wait for
		// the administrator's confirmation.
		ev = permission.TerminationRequested{PermissionID: req.PermissionID}
	} else {
		ev = permission.Terminated{PermissionID: req.PermissionID}
	}
	result, err := eng.Commit(ctx, ev)
	if err != nil {
		if errors.Is(err, sentinel.ErrIllegalTransition) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "permission request cannot be terminated in its current state")
		}
		return nil, err
	}
	return result.Request, nil
}

// Revoke withdraws an accepted permission on the consumer's initiative.
func (s *Service) Revoke(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error) {
	req, err := s.Get(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	eng, err := s.engine(req.DataSource.Region)
	if err != nil {
		return nil, err
	}
	result, err := eng.Commit(ctx, permission.Revoked{PermissionID: req.PermissionID})
	if err != nil {
		if errors.Is(err, sentinel.ErrIllegalTransition) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "permission request cannot be revoked in its current state")
		}
		return nil, err
	}
	return result.Request, nil
}
