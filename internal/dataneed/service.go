package dataneed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
	"gridgate/pkg/platform/sentinel"
)

// Store provides data need definitions.
type Store interface {
	Get(ctx context.Context, dataNeedID id.DataNeedID) (*DataNeed, error)
}

// Service calculates what a data need resolves to at a reference time.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Calculate resolves a data need. NotFound and NotSupported are results, not
// errors: the caller maps them to MALFORMED with field-level diagnostics.
func (s *Service) Calculate(ctx context.Context, dataNeedID id.DataNeedID, referenceTime time.Time) (Result, error) {
	need, err := s.store.Get(ctx, dataNeedID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Result{Kind: ResultNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("calculate data need %s: %w", dataNeedID, err)
	}

	switch need.Type {
	case TypeAccountingPoint:
		return Result{Kind: ResultAccountingPoint}, nil
	case TypeValidatedHistorical:
		if len(need.Granularities) == 0 {
			return Result{Kind: ResultNotSupported, Reason: "data need declares no granularities"}, nil
		}
		start := referenceTime.Add(-need.MaxLookback)
		end := referenceTime.Add(need.Duration)
		return Result{
			Kind:          ResultValidatedHistorical,
			Granularities: need.Granularities,
			Timeframe:     permission.Timeframe{Start: start, End: end},
		}, nil
	default:
		return Result{Kind: ResultNotSupported, Reason: fmt.Sprintf("unsupported data need type %q", need.Type)}, nil
	}
}
