package dk

import (
	"encoding/xml"
	"fmt"
	"time"

	"gridgate/internal/connector"
	"gridgate/internal/engine"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

// Connector drives the shared engine with the Danish XML message protocol.
// The protocol has no async send-ack step: a delivered request is SENT.
type Connector struct {
	adapter connector.Adapter
	table   engine.Table
}

func New(adapter connector.Adapter) *Connector {
	return &Connector{
		adapter: adapter,
		table:   engine.BaseTable(),
	}
}

func (c *Connector) Region() id.Region          { return id.RegionDK }
func (c *Connector) Table() engine.Table        { return c.table }
func (c *Connector) Adapter() connector.Adapter { return c.adapter }
func (c *Connector) AcknowledgesSend() bool { return false }

// ConfirmsTermination is true: the administrator answers a termination with
// a TerminationConfirmed message before the permission is closed.
func (c *Connector) ConfirmsTermination() bool { return true }

// notificationDocument is the inbound wire shape. MessageCode selects the
// business meaning; StatusCode refines rejections.
type notificationDocument struct {
	XMLName        xml.Name          `xml:"PermissionNotification"`
	ConversationID string            `xml:"ConversationId"`
	RequestID      string            `xml:"RequestId"`
	MessageCode    string            `xml:"MessageCode"`
	StatusCode     string            `xml:"StatusCode"`
	StatusText     string            `xml:"StatusText"`
	Consents       []consentElement  `xml:"Consents>Consent"`
	Readings       []readingElement  `xml:"Readings>Reading"`
}

type consentElement struct {
	MeteringPointID string `xml:"MeteringPointId"`
	ConsentID       string `xml:"ConsentId"`
	RequestID       string `xml:"RequestId"`
}

type readingElement struct {
	MeteringPointID string `xml:"MeteringPointId"`
	LastReading     string `xml:"LastReading"`
}

// Wire message codes. Everything protocol-specific is folded into the
// neutral Outcome set right here.
const (
	msgConsentAccepted      = "ConsentAccepted"
	msgConsentRejected      = "ConsentRejected"
	msgConsentRevoked       = "ConsentRevoked"
	msgTerminationConfirmed = "TerminationConfirmed"
	msgAnswer               = "Answer"
	msgMeteredData          = "MeteredDataNotification"
)

// Rejection status codes used by the administrator.
const (
	statusGranularityNotDeliverable = "E17"
	statusUnknownMeteringPoint      = "E10"
	statusRequestInvalid            = "E86"
)

// Decode parses an inbound XML notification. A payload that does not parse,
// or carries an unknown message code, is a protocol decoding failure and
// never reaches the engine.
func (c *Connector) Decode(payload []byte) (*connector.Notification, error) {
	var doc notificationDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode dk notification: %w", err)
	}

	n := &connector.Notification{
		ConversationID:    id.ConversationID(doc.ConversationID),
		ExternalRequestID: id.ExternalRequestID(doc.RequestID),
		Message:           doc.StatusText,
		GenericStatus:     doc.StatusCode,
	}

	switch doc.MessageCode {
	case msgConsentAccepted:
		n.Outcome = connector.OutcomeAccepted
		for _, consent := range doc.Consents {
			n.Grants = append(n.Grants, connector.ConsentGrant{
				MeteringPointID:   id.MeteringPointID(consent.MeteringPointID),
				ConsentID:         id.ConsentID(consent.ConsentID),
				ExternalRequestID: id.ExternalRequestID(consent.RequestID),
			})
		}
		if len(n.Grants) == 0 {
			return nil, fmt.Errorf("decode dk notification: %s without consents", msgConsentAccepted)
		}
	case msgConsentRejected:
		n.Outcome = connector.OutcomeRejected
		n.Reason, n.Invalid = rejectionReason(doc.StatusCode)
	case msgConsentRevoked:
		n.Outcome = connector.OutcomeRevoked
	case msgTerminationConfirmed:
		n.Outcome = connector.OutcomeTerminationConfirmed
	case msgAnswer:
		n.Outcome = connector.OutcomeAnswer
	case msgMeteredData:
		n.Outcome = connector.OutcomeReadings
		n.Readings = make(map[id.MeteringPointID]time.Time, len(doc.Readings))
		for _, reading := range doc.Readings {
			seen, err := time.Parse(time.RFC3339, reading.LastReading)
			if err != nil {
				return nil, fmt.Errorf("decode dk reading for %s: %w", reading.MeteringPointID, err)
			}
			n.Readings[id.MeteringPointID(reading.MeteringPointID)] = seen
		}
	default:
		return nil, fmt.Errorf("decode dk notification: unknown message code %q", doc.MessageCode)
	}

	return n, nil
}

func rejectionReason(statusCode string) (permission.RejectionReason, bool) {
	switch statusCode {
	case statusGranularityNotDeliverable:
		return permission.ReasonGranularityNotDeliverable, false
	case statusUnknownMeteringPoint:
		return permission.ReasonUnknownMeteringPoint, false
	case statusRequestInvalid:
		return permission.ReasonUnspecified, true
	default:
		return permission.ReasonUnspecified, false
	}
}
