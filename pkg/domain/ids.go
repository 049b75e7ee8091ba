// Package domain holds the typed identifiers shared across the engine.
//
// IDs are distinct types so the compiler rejects mixing a protocol-assigned
// correlation key with the engine's own primary key.
package domain

import (
	"github.com/google/uuid"

	dErrors "gridgate/pkg/domain-errors"
)

// PermissionID is the engine's primary key for a permission request. It is
// generated exactly once at creation and never reused.
type PermissionID string

// NewPermissionID generates a fresh permission id.
func NewPermissionID() PermissionID {
	return PermissionID(uuid.NewString())
}

// ParsePermissionID validates external input at trust boundaries.
func ParsePermissionID(s string) (PermissionID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil || parsed == uuid.Nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission id must be a valid UUID")
	}
	return PermissionID(parsed.String()), nil
}

func (id PermissionID) String() string { return string(id) }

// ConversationID is the engine-generated correlation key carried on outbound
// requests. A new one is generated for every send attempt.
type ConversationID string

// NewConversationID generates a fresh conversation id.
func NewConversationID() ConversationID {
	return ConversationID(uuid.NewString())
}

func (id ConversationID) String() string { return string(id) }

// ExternalRequestID is the administrator-assigned correlation key, learned
// from the first inbound response that carries it.
type ExternalRequestID string

func (id ExternalRequestID) String() string { return string(id) }

// ConnectionID is the caller's handle for the permission request.
type ConnectionID string

func (id ConnectionID) String() string { return string(id) }

// DataNeedID references the declarative data need the request fulfils.
type DataNeedID string

func (id DataNeedID) String() string { return string(id) }

// MeteringPointID identifies a metering device at the administrator.
type MeteringPointID string

func (id MeteringPointID) String() string { return string(id) }

// ConsentID is the administrator's identifier for a granted consent.
type ConsentID string

func (id ConsentID) String() string { return string(id) }

// Region identifies a national integration (one connector per region).
type Region string

const (
	RegionDK Region = "dk"
	RegionNO Region = "no"
)

// validRegions is the single source of truth for supported regions.
var validRegions = map[Region]bool{
	RegionDK: true,
	RegionNO: true,
}

// ParseRegion constructs a Region from external input.
func ParseRegion(s string) (Region, error) {
	r := Region(s)
	if !validRegions[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported region %q", s)
	}
	return r, nil
}

func (r Region) String() string { return string(r) }
