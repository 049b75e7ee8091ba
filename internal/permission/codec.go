package permission

import (
	"encoding/json"
	"fmt"
)

// EncodeEvent serializes an event for outbox storage.
func EncodeEvent(ev Event) (json.RawMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind(), err)
	}
	return payload, nil
}

// DecodeEvent reverses EncodeEvent using the kind stored alongside the
// payload. Unknown kinds are an error: the event set is closed and outbox
// entries are never deleted, so an unknown kind means a corrupted log.
func DecodeEvent(kind EventKind, payload json.RawMessage) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch kind {
	case KindCreated:
		ev, err = decodeAs[Created](payload)
	case KindValidated:
		ev, err = decodeAs[Validated](payload)
	case KindMalformed:
		ev, err = decodeAs[Malformed](payload)
	case KindSent:
		ev, err = decodeAs[Sent](payload)
	case KindUnableToSend:
		ev, err = decodeAs[UnableToSend](payload)
	case KindPendingAcknowledgement:
		ev, err = decodeAs[PendingAcknowledgement](payload)
	case KindAccepted:
		ev, err = decodeAs[Accepted](payload)
	case KindAnswer:
		ev, err = decodeAs[Answer](payload)
	case KindRejected:
		ev, err = decodeAs[Rejected](payload)
	case KindTimedOut:
		ev, err = decodeAs[TimedOut](payload)
	case KindExternallyTerminated:
		ev, err = decodeAs[ExternallyTerminated](payload)
	case KindRevoked:
		ev, err = decodeAs[Revoked](payload)
	case KindTerminationRequested:
		ev, err = decodeAs[TerminationRequested](payload)
	case KindTerminated:
		ev, err = decodeAs[Terminated](payload)
	case KindFulfilled:
		ev, err = decodeAs[Fulfilled](payload)
	case KindPollingWatermark:
		ev, err = decodeAs[PollingWatermark](payload)
	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return ev, nil
}

func decodeAs[T Event](payload json.RawMessage) (Event, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}
