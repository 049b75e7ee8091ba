// Package dataneed is the read-only collaborator describing what energy data
// a permission request asks for. It is consulted at validation time and by
// the granularity-downgrade compensating retry.
package dataneed

import (
	"time"

	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

// Type of data a need declares.
type Type string

const (
	// TypeAccountingPoint asks for master data about the accounting point
	// itself; no timeseries timeframe applies.
	TypeAccountingPoint Type = "accounting_point"
	// TypeValidatedHistorical asks for validated historical readings over a
	// timeframe at one of the supported granularities.
	TypeValidatedHistorical Type = "validated_historical"
)

// DataNeed is the declarative specification of requested data.
type DataNeed struct {
	ID            id.DataNeedID
	Type          Type
	Granularities []permission.Granularity
	// MaxLookback bounds how far back from the reference time historical
	// readings may be requested.
	MaxLookback time.Duration
	// Duration of the retrieval window going forward from the reference time.
	Duration time.Duration
}

// Supports reports whether the need allows the given granularity.
func (n DataNeed) Supports(g permission.Granularity) bool {
	for _, candidate := range n.Granularities {
		if candidate == g {
			return true
		}
	}
	return false
}

// ResultKind discriminates Calculate outcomes.
type ResultKind string

const (
	ResultNotFound            ResultKind = "not_found"
	ResultNotSupported        ResultKind = "not_supported"
	ResultAccountingPoint     ResultKind = "accounting_point"
	ResultValidatedHistorical ResultKind = "validated_historical"
)

// Result is the outcome of calculating a data need at a reference time.
type Result struct {
	Kind          ResultKind
	Reason        string
	Granularities []permission.Granularity
	Timeframe     permission.Timeframe
}

// NextCoarser returns the coarsest-avoiding downgrade target: the first
// granularity coarser than current that the calculated result supports.
func (r Result) NextCoarser(current permission.Granularity) (permission.Granularity, bool) {
	for _, candidate := range current.Coarser() {
		for _, supported := range r.Granularities {
			if candidate == supported {
				return candidate, true
			}
		}
	}
	return "", false
}
