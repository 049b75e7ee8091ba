// Package permission holds the permission-request aggregate, its event set,
// and the repository contract. The aggregate is mutated only by applying
// committed events; direct field writes outside Apply are a bug.
package permission

import (
	"time"

	id "gridgate/pkg/domain"
)

// Status is the current state of a permission request.
type Status string

const (
	StatusCreated                     Status = "CREATED"
	StatusValidated                   Status = "VALIDATED"
	StatusMalformed                   Status = "MALFORMED"
	StatusSent                        Status = "SENT"
	StatusUnableToSend                Status = "UNABLE_TO_SEND"
	StatusPendingAcknowledgement      Status = "PENDING_ACKNOWLEDGEMENT"
	StatusAccepted                    Status = "ACCEPTED"
	StatusRejected                    Status = "REJECTED"
	StatusInvalid                     Status = "INVALID"
	StatusRequiresExternalTermination Status = "REQUIRES_EXTERNAL_TERMINATION"
	StatusExternallyTerminated        Status = "EXTERNALLY_TERMINATED"
	StatusTerminated                  Status = "TERMINATED"
	StatusRevoked                     Status = "REVOKED"
	StatusFulfilled                   Status = "FULFILLED"
	StatusTimedOut                    Status = "TIMED_OUT"
)

// terminalStatuses is the single source of truth for terminal states.
// Administrators may resend messages after termination, so events addressed
// to a terminal aggregate are logged and dropped rather than failed hard.
var terminalStatuses = map[Status]bool{
	StatusMalformed:            true,
	StatusRejected:             true,
	StatusInvalid:              true,
	StatusTerminated:           true,
	StatusExternallyTerminated: true,
	StatusRevoked:              true,
	StatusFulfilled:            true,
	StatusTimedOut:             true,
}

// Terminal reports whether the status admits no further transitions, with the
// single documented exception: EXTERNALLY_TERMINATED and REVOKED may supersede
// FULFILLED because the administrator's authority is final.
func (s Status) Terminal() bool { return terminalStatuses[s] }

// Live reports whether the aggregate may still receive correlated
// notifications. Correlation keys map to at most one live aggregate.
func (s Status) Live() bool { return !s.Terminal() }

// Granularity of the requested readings, ISO 8601 duration labels.
type Granularity string

const (
	GranularityQuarterHour Granularity = "PT15M"
	GranularityHour        Granularity = "PT1H"
	GranularityDay         Granularity = "P1D"
	GranularityMonth       Granularity = "P1M"
)

// Coarser orders granularities from finest to coarsest for the
// granularity-downgrade compensating retry.
var granularityOrder = []Granularity{
	GranularityQuarterHour,
	GranularityHour,
	GranularityDay,
	GranularityMonth,
}

// Coarser returns all granularities strictly coarser than g, finest first.
func (g Granularity) Coarser() []Granularity {
	for i, candidate := range granularityOrder {
		if candidate == g {
			return granularityOrder[i+1:]
		}
	}
	return nil
}

// Timeframe is the requested data window.
type Timeframe struct {
	Start time.Time
	End   time.Time
}

// DataSource identifies the national administrator holding the data.
type DataSource struct {
	Administrator string
	Region        id.Region
}

// CorrelationKeys are the protocol identifiers used to match inbound
// notifications to a pending request. The conversation id is engine-generated
// per send attempt; the external request id is learned from the first
// response that carries it.
type CorrelationKeys struct {
	ConversationID    id.ConversationID
	ExternalRequestID id.ExternalRequestID
}

// Empty reports whether no key has been assigned yet.
func (k CorrelationKeys) Empty() bool {
	return k.ConversationID == "" && k.ExternalRequestID == ""
}

// Request is the permission-request aggregate projection. Version guards
// read-modify-write cycles: every commit checks the expected version so a
// sweep racing a concurrent manual transition is rejected, not overwritten.
type Request struct {
	PermissionID id.PermissionID
	ConnectionID id.ConnectionID
	DataNeedID   id.DataNeedID
	Status       Status
	Granularity  Granularity
	Timeframe    Timeframe
	DataSource   DataSource
	Keys         CorrelationKeys

	// Learned on acceptance.
	MeteringPointID id.MeteringPointID
	ConsentID       id.ConsentID

	// LastKnownReadings tracks the last-seen reading timestamp per device so
	// already-consumed data is never re-delivered. Monotonically non-decreasing.
	LastKnownReadings map[id.MeteringPointID]time.Time

	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// Clone returns a deep copy so stores can hand out aggregates without
// exposing shared mutable state.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.LastKnownReadings != nil {
		out.LastKnownReadings = make(map[id.MeteringPointID]time.Time, len(r.LastKnownReadings))
		for k, v := range r.LastKnownReadings {
			out.LastKnownReadings[k] = v
		}
	}
	return &out
}
