// Package connector defines the adapter-facing contracts implemented once per
// national integration. Wire-format specifics (XML message types, numeric
// response codes) stay behind Decode, which produces the engine's closed
// notification shape; the engine core never branches on protocol codes.
package connector

import (
	"context"
	"time"

	"gridgate/internal/engine"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

// Outbound is an engine-level outbound permission request handed to an
// adapter for transmission. ConversationID is freshly generated for every
// send attempt.
type Outbound struct {
	Request        *permission.Request
	ConversationID id.ConversationID
}

// Adapter translates engine-level outbound requests to the region's wire
// protocol. An error means transport failure and maps to UNABLE_TO_SEND;
// success does not guarantee administrator acceptance. Send blocks up to the
// adapter's own transport timeout; retries are never inline.
type Adapter interface {
	Send(ctx context.Context, out Outbound) error
}

// DeliveryResult is returned to the transport layer for an inbound raw
// message so it can decide whether to redeliver. This is distinct from the
// engine-level resend scheduler, which operates after successful transport
// delivery but failed correlation.
type DeliveryResult string

const (
	DeliverySuccess        DeliveryResult = "SUCCESS"
	DeliveryRejected       DeliveryResult = "REJECTED"
	DeliveryTemporaryError DeliveryResult = "TEMPORARY_ERROR"
)

// Outcome classifies a decoded inbound notification.
type Outcome string

const (
	// OutcomeAcknowledged is the async send-ack of pushed-authorization flows.
	OutcomeAcknowledged Outcome = "acknowledged"
	// OutcomeAccepted carries one or more consent grants.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected is an explicit negative response.
	OutcomeRejected Outcome = "rejected"
	// OutcomeAnswer is an informational reply without a state change.
	OutcomeAnswer Outcome = "answer"
	// OutcomeRevoked is an unsolicited administrator-side termination.
	OutcomeRevoked Outcome = "revoked"
	// OutcomeTerminationConfirmed confirms a requested termination.
	OutcomeTerminationConfirmed Outcome = "termination_confirmed"
	// OutcomeReadings advances per-device reading watermarks.
	OutcomeReadings Outcome = "readings"
)

// ConsentGrant names one consent granted by an acceptance notification. One
// customer consent may cover several metering points; each grant beyond the
// first spawns a new aggregate.
type ConsentGrant struct {
	MeteringPointID   id.MeteringPointID
	ConsentID         id.ConsentID
	ExternalRequestID id.ExternalRequestID
}

// Notification is a protocol-neutral inbound message produced by Decode.
// It carries one or two correlation keys; the administrator may populate
// only one on first contact.
type Notification struct {
	ConversationID    id.ConversationID
	ExternalRequestID id.ExternalRequestID
	Outcome           Outcome
	Reason            permission.RejectionReason
	Message           string
	GenericStatus     string
	// Invalid marks a rejection as "request ill-formed" (INVALID) rather
	// than "not deliverable" (REJECTED).
	Invalid  bool
	Grants   []ConsentGrant
	Readings map[id.MeteringPointID]time.Time
}

// Connector bundles everything region-specific: the wire adapter, the
// decode step, and the transition table driving the shared engine.
type Connector interface {
	Region() id.Region
	Table() engine.Table
	Adapter() Adapter

	// Decode parses a raw inbound payload. A malformed payload is rejected
	// here and never reaches the engine.
	Decode(payload []byte) (*Notification, error)

	// AcknowledgesSend reports whether the protocol has an async send-ack
	// step: a successful send then parks the aggregate in
	// PENDING_ACKNOWLEDGEMENT until the ack notification arrives.
	AcknowledgesSend() bool

	// ConfirmsTermination reports whether a caller-initiated termination
	// must wait for the administrator's confirmation. When true the
	// aggregate parks in REQUIRES_EXTERNAL_TERMINATION until the
	// confirmation notification arrives.
	ConfirmsTermination() bool
}
