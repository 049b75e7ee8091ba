package permission

import (
	"time"

	id "gridgate/pkg/domain"
)

// EventKind names one member of the closed event set. Connectors decode wire
// messages into these at the adapter boundary; the engine core never sees
// protocol-specific codes.
type EventKind string

const (
	KindCreated                EventKind = "created"
	KindValidated              EventKind = "validated"
	KindMalformed              EventKind = "malformed"
	KindSent                   EventKind = "sent"
	KindUnableToSend           EventKind = "unable_to_send"
	KindPendingAcknowledgement EventKind = "pending_acknowledgement"
	KindAccepted               EventKind = "accepted"
	KindAnswer                 EventKind = "answer"
	KindRejected               EventKind = "rejected"
	KindTimedOut               EventKind = "timed_out"
	KindExternallyTerminated   EventKind = "externally_terminated"
	KindRevoked                EventKind = "revoked"
	KindTerminationRequested   EventKind = "termination_requested"
	KindTerminated             EventKind = "terminated"
	KindFulfilled              EventKind = "fulfilled"
	KindPollingWatermark       EventKind = "polling_watermark"
)

// Event is an immutable, typed fact about one permission request. Each event
// carries only the permission id plus the fields needed to compute the delta.
type Event interface {
	Permission() id.PermissionID
	Kind() EventKind
}

// RejectionReason classifies an administrator rejection. The engine branches
// on exactly one reason for the compensating granularity retry; everything
// else stays opaque.
type RejectionReason string

const (
	ReasonGranularityNotDeliverable RejectionReason = "granularity_not_deliverable"
	ReasonUnknownMeteringPoint      RejectionReason = "unknown_metering_point"
	ReasonConsentDenied             RejectionReason = "consent_denied"
	ReasonUnspecified               RejectionReason = "unspecified"
)

// Created starts a new aggregate.
type Created struct {
	PermissionID id.PermissionID `json:"permissionId"`
	ConnectionID id.ConnectionID `json:"connectionId"`
	DataNeedID   id.DataNeedID   `json:"dataNeedId"`
	Timeframe    Timeframe       `json:"timeframe"`
	Granularity  Granularity     `json:"granularity"`
	DataSource   DataSource      `json:"dataSource"`
	// MeteringPointID is the caller-designated target point, when known
	// up front. Acceptance may still rebind it per consent grant.
	MeteringPointID id.MeteringPointID `json:"meteringPointId,omitempty"`
	At              time.Time          `json:"at"`
}

func (e Created) Permission() id.PermissionID { return e.PermissionID }
func (e Created) Kind() EventKind             { return KindCreated }

// Validated marks the request as passing business validation. It re-enters
// VALIDATED on unable-to-send retries and on granularity downgrades, carrying
// the (possibly coarser) granularity to request next.
type Validated struct {
	PermissionID id.PermissionID `json:"permissionId"`
	Granularity  Granularity     `json:"granularity"`
}

func (e Validated) Permission() id.PermissionID { return e.PermissionID }
func (e Validated) Kind() EventKind             { return KindValidated }

// Malformed records a failed business validation with field-level errors.
// Terminal and user-facing; never retried.
type Malformed struct {
	PermissionID id.PermissionID `json:"permissionId"`
	Errors       []string        `json:"errors"`
}

func (e Malformed) Permission() id.PermissionID { return e.PermissionID }
func (e Malformed) Kind() EventKind             { return KindMalformed }

// Sent records a successful outbound transmission together with the
// conversation id generated for this attempt.
type Sent struct {
	PermissionID   id.PermissionID   `json:"permissionId"`
	ConversationID id.ConversationID `json:"conversationId"`
}

func (e Sent) Permission() id.PermissionID { return e.PermissionID }
func (e Sent) Kind() EventKind             { return KindSent }

// UnableToSend records a transport failure. The scheduled retry job moves the
// aggregate back to VALIDATED before re-attempting the send.
type UnableToSend struct {
	PermissionID id.PermissionID `json:"permissionId"`
	Reason       string          `json:"reason"`
}

func (e UnableToSend) Permission() id.PermissionID { return e.PermissionID }
func (e UnableToSend) Kind() EventKind             { return KindUnableToSend }

// PendingAcknowledgement is used by protocols with an async send-ack step
// (pushed-authorization flows): the request is parked until the ack arrives.
type PendingAcknowledgement struct {
	PermissionID   id.PermissionID   `json:"permissionId"`
	ConversationID id.ConversationID `json:"conversationId"`
}

func (e PendingAcknowledgement) Permission() id.PermissionID { return e.PermissionID }
func (e PendingAcknowledgement) Kind() EventKind             { return KindPendingAcknowledgement }

// Accepted records the administrator's acceptance, attaching the learned
// correlation key and consent identity.
type Accepted struct {
	PermissionID      id.PermissionID      `json:"permissionId"`
	ExternalRequestID id.ExternalRequestID `json:"externalRequestId,omitempty"`
	MeteringPointID   id.MeteringPointID   `json:"meteringPointId,omitempty"`
	ConsentID         id.ConsentID         `json:"consentId,omitempty"`
}

func (e Accepted) Permission() id.PermissionID { return e.PermissionID }
func (e Accepted) Kind() EventKind             { return KindAccepted }

// Answer is an informational reply that does not change state. It records the
// administrator's generic status and message on the aggregate.
type Answer struct {
	PermissionID  id.PermissionID `json:"permissionId"`
	GenericStatus string          `json:"genericStatus"`
	Message       string          `json:"message"`
}

func (e Answer) Permission() id.PermissionID { return e.PermissionID }
func (e Answer) Kind() EventKind             { return KindAnswer }

// Rejected records an explicit negative response. Invalid routes the
// aggregate to INVALID instead of REJECTED (administrator deemed the request
// itself ill-formed rather than undeliverable).
type Rejected struct {
	PermissionID id.PermissionID `json:"permissionId"`
	Reason       RejectionReason `json:"reason"`
	Message      string          `json:"message"`
	Invalid      bool            `json:"invalid,omitempty"`
}

func (e Rejected) Permission() id.PermissionID { return e.PermissionID }
func (e Rejected) Kind() EventKind             { return KindRejected }

// TimedOut is forced by the timeout sweeper when no response arrived in time.
type TimedOut struct {
	PermissionID id.PermissionID `json:"permissionId"`
}

func (e TimedOut) Permission() id.PermissionID { return e.PermissionID }
func (e TimedOut) Kind() EventKind             { return KindTimedOut }

// ExternallyTerminated records an administrator-side termination. It may
// supersede FULFILLED; the administrator's authority is final.
type ExternallyTerminated struct {
	PermissionID id.PermissionID `json:"permissionId"`
	Message      string          `json:"message,omitempty"`
}

func (e ExternallyTerminated) Permission() id.PermissionID { return e.PermissionID }
func (e ExternallyTerminated) Kind() EventKind             { return KindExternallyTerminated }

// Revoked records a consumer-initiated revocation of an accepted permission.
type Revoked struct {
	PermissionID id.PermissionID `json:"permissionId"`
}

func (e Revoked) Permission() id.PermissionID { return e.PermissionID }
func (e Revoked) Kind() EventKind             { return KindRevoked }

// TerminationRequested parks the aggregate until the administrator confirms
// the termination (protocols that need a round trip).
type TerminationRequested struct {
	PermissionID id.PermissionID `json:"permissionId"`
}

func (e TerminationRequested) Permission() id.PermissionID { return e.PermissionID }
func (e TerminationRequested) Kind() EventKind             { return KindTerminationRequested }

// Terminated records an immediate caller-initiated termination.
type Terminated struct {
	PermissionID id.PermissionID `json:"permissionId"`
}

func (e Terminated) Permission() id.PermissionID { return e.PermissionID }
func (e Terminated) Kind() EventKind             { return KindTerminated }

// Fulfilled closes an accepted permission whose retrieval window elapsed.
type Fulfilled struct {
	PermissionID id.PermissionID `json:"permissionId"`
}

func (e Fulfilled) Permission() id.PermissionID { return e.PermissionID }
func (e Fulfilled) Kind() EventKind             { return KindFulfilled }

// PollingWatermark advances the last-seen reading timestamp per device.
// Non-transitioning; regressions are ignored to keep watermarks monotonic.
type PollingWatermark struct {
	PermissionID id.PermissionID               `json:"permissionId"`
	Readings     map[id.MeteringPointID]time.Time `json:"readings"`
}

func (e PollingWatermark) Permission() id.PermissionID { return e.PermissionID }
func (e PollingWatermark) Kind() EventKind             { return KindPollingWatermark }
