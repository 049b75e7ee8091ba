package no

import (
	"encoding/json"
	"fmt"
	"time"

	"gridgate/internal/connector"
	"gridgate/internal/engine"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

// Connector drives the shared engine with the Norwegian OAuth flow. The
// protocol has an async send-ack step: a pushed request parks the aggregate
// in PENDING_ACKNOWLEDGEMENT until the authorization server acknowledges.
type Connector struct {
	adapter connector.Adapter
	table   engine.Table
}

func New(adapter connector.Adapter) *Connector {
	table := engine.BaseTable().
		With(permission.StatusValidated, permission.KindPendingAcknowledgement).
		With(permission.StatusPendingAcknowledgement,
			permission.KindSent,
			permission.KindTimedOut,
		)
	return &Connector{adapter: adapter, table: table}
}

func (c *Connector) Region() id.Region          { return id.RegionNO }
func (c *Connector) Table() engine.Table        { return c.table }
func (c *Connector) Adapter() connector.Adapter { return c.adapter }
func (c *Connector) AcknowledgesSend() bool { return true }

// ConfirmsTermination is false: revocation at the authorization server takes
// effect immediately.
func (c *Connector) ConfirmsTermination() bool { return false }

// notificationPayload is the inbound JSON shape delivered by the
// authorization server's event webhook and by the reading poller.
type notificationPayload struct {
	State            string            `json:"state"`
	RequestID        string            `json:"request_id"`
	Event            string            `json:"event"`
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Grants           []grantPayload    `json:"grants"`
	Readings         map[string]string `json:"readings"`
}

type grantPayload struct {
	MeteringPointID string `json:"metering_point_id"`
	ConsentID       string `json:"consent_id"`
}

// Webhook event names, folded into the neutral Outcome set here.
const (
	eventAuthorizationPending = "authorization_pending"
	eventAuthorizationGranted = "authorization_granted"
	eventAccessDenied         = "access_denied"
	eventConsentRevoked       = "consent_revoked"
	eventTerminationConfirmed = "termination_confirmed"
	eventReadings             = "readings"
)

func (c *Connector) Decode(payload []byte) (*connector.Notification, error) {
	var doc notificationPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode no notification: %w", err)
	}

	n := &connector.Notification{
		ConversationID:    id.ConversationID(doc.State),
		ExternalRequestID: id.ExternalRequestID(doc.RequestID),
		Message:           doc.ErrorDescription,
		GenericStatus:     doc.Error,
	}

	switch doc.Event {
	case eventAuthorizationPending:
		n.Outcome = connector.OutcomeAcknowledged
	case eventAuthorizationGranted:
		n.Outcome = connector.OutcomeAccepted
		for _, grant := range doc.Grants {
			n.Grants = append(n.Grants, connector.ConsentGrant{
				MeteringPointID:   id.MeteringPointID(grant.MeteringPointID),
				ConsentID:         id.ConsentID(grant.ConsentID),
				ExternalRequestID: id.ExternalRequestID(doc.RequestID),
			})
		}
		if len(n.Grants) == 0 {
			return nil, fmt.Errorf("decode no notification: %s without grants", eventAuthorizationGranted)
		}
	case eventAccessDenied:
		n.Outcome = connector.OutcomeRejected
		n.Reason, n.Invalid = rejectionReason(doc.Error)
	case eventConsentRevoked:
		n.Outcome = connector.OutcomeRevoked
	case eventTerminationConfirmed:
		n.Outcome = connector.OutcomeTerminationConfirmed
	case eventReadings:
		n.Outcome = connector.OutcomeReadings
		n.Readings = make(map[id.MeteringPointID]time.Time, len(doc.Readings))
		for meteringPoint, stamp := range doc.Readings {
			seen, err := time.Parse(time.RFC3339, stamp)
			if err != nil {
				return nil, fmt.Errorf("decode no reading for %s: %w", meteringPoint, err)
			}
			n.Readings[id.MeteringPointID(meteringPoint)] = seen
		}
	default:
		return nil, fmt.Errorf("decode no notification: unknown event %q", doc.Event)
	}

	return n, nil
}

func rejectionReason(oauthError string) (permission.RejectionReason, bool) {
	switch oauthError {
	case "resolution_not_supported":
		return permission.ReasonGranularityNotDeliverable, false
	case "invalid_request":
		return permission.ReasonUnspecified, true
	case "access_denied":
		return permission.ReasonConsentDenied, false
	default:
		return permission.ReasonUnspecified, false
	}
}
