package permission

import (
	"fmt"
	"time"

	id "gridgate/pkg/domain"
)

// transitioning maps each event kind to the status it produces. Kinds absent
// from the map (Answer, PollingWatermark) carry a delta without a transition.
// Rejected is resolved per event because its target depends on the Invalid
// flag; Created is resolved by NewFromCreated.
var transitioning = map[EventKind]Status{
	KindValidated:              StatusValidated,
	KindMalformed:              StatusMalformed,
	KindSent:                   StatusSent,
	KindUnableToSend:           StatusUnableToSend,
	KindPendingAcknowledgement: StatusPendingAcknowledgement,
	KindAccepted:               StatusAccepted,
	KindTimedOut:               StatusTimedOut,
	KindExternallyTerminated:   StatusExternallyTerminated,
	KindRevoked:                StatusRevoked,
	KindTerminationRequested:   StatusRequiresExternalTermination,
	KindTerminated:             StatusTerminated,
	KindFulfilled:              StatusFulfilled,
}

// TargetStatus resolves the status an event produces, or ok=false for
// non-transitioning events. The mapping is a pure function of the event value
// so replay stays deterministic across connectors.
func TargetStatus(ev Event) (Status, bool) {
	switch e := ev.(type) {
	case Created:
		return StatusCreated, true
	case Rejected:
		if e.Invalid {
			return StatusInvalid, true
		}
		return StatusRejected, true
	}
	status, ok := transitioning[ev.Kind()]
	return status, ok
}

// NewFromCreated builds a fresh aggregate from its creation event.
func NewFromCreated(ev Created) *Request {
	return &Request{
		PermissionID:      ev.PermissionID,
		ConnectionID:      ev.ConnectionID,
		DataNeedID:        ev.DataNeedID,
		Status:            StatusCreated,
		Granularity:       ev.Granularity,
		Timeframe:         ev.Timeframe,
		DataSource:        ev.DataSource,
		MeteringPointID:   ev.MeteringPointID,
		LastKnownReadings: map[id.MeteringPointID]time.Time{},
		CreatedAt:         ev.At,
		UpdatedAt:         ev.At,
	}
}

// Apply mutates the projection with the event's delta. Apply is total and
// deterministic: legality is the engine's concern, so replaying a committed
// event sequence from empty state always reproduces the stored projection.
func Apply(r *Request, ev Event, at time.Time) {
	if status, ok := TargetStatus(ev); ok {
		r.Status = status
	}
	r.UpdatedAt = at

	switch e := ev.(type) {
	case Validated:
		if e.Granularity != "" {
			r.Granularity = e.Granularity
		}
		r.ErrorMessage = ""
	case Malformed:
		r.ErrorMessage = joinErrors(e.Errors)
	case Sent:
		// Each send attempt gets a fresh conversation id; the previous one is
		// superseded for correlation purposes.
		r.Keys.ConversationID = e.ConversationID
	case PendingAcknowledgement:
		r.Keys.ConversationID = e.ConversationID
	case UnableToSend:
		r.ErrorMessage = e.Reason
	case Accepted:
		if e.ExternalRequestID != "" {
			r.Keys.ExternalRequestID = e.ExternalRequestID
		}
		if e.MeteringPointID != "" {
			r.MeteringPointID = e.MeteringPointID
		}
		if e.ConsentID != "" {
			r.ConsentID = e.ConsentID
		}
		r.ErrorMessage = ""
	case Answer:
		r.ErrorMessage = e.Message
	case Rejected:
		r.ErrorMessage = e.Message
	case ExternallyTerminated:
		if e.Message != "" {
			r.ErrorMessage = e.Message
		}
	case PollingWatermark:
		if r.LastKnownReadings == nil {
			r.LastKnownReadings = map[id.MeteringPointID]time.Time{}
		}
		for device, seen := range e.Readings {
			// Watermarks only move forward.
			if current, ok := r.LastKnownReadings[device]; !ok || seen.After(current) {
				r.LastKnownReadings[device] = seen
			}
		}
	}
}

// Replay folds a committed event sequence into a projection from empty state.
// The first event must be the aggregate's Created event.
func Replay(events []Event) (*Request, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("replay: empty event sequence")
	}
	created, ok := events[0].(Created)
	if !ok {
		return nil, fmt.Errorf("replay: first event is %s, want %s", events[0].Kind(), KindCreated)
	}
	r := NewFromCreated(created)
	r.Version = 1
	for _, ev := range events[1:] {
		if ev.Permission() != r.PermissionID {
			return nil, fmt.Errorf("replay: event for %s in stream of %s", ev.Permission(), r.PermissionID)
		}
		Apply(r, ev, r.UpdatedAt)
		r.Version++
	}
	return r, nil
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
