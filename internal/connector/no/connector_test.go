package no

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridgate/internal/connector"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

func TestDecodeAuthorizationPendingIsSendAck(t *testing.T) {
	payload := []byte(`{"state":"conv-1","event":"authorization_pending"}`)

	n, err := New(nil).Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, connector.OutcomeAcknowledged, n.Outcome)
	assert.Equal(t, id.ConversationID("conv-1"), n.ConversationID)
}

func TestDecodeAuthorizationGrantedCollectsGrants(t *testing.T) {
	payload := []byte(`{
		"state": "conv-1",
		"request_id": "ext-1",
		"event": "authorization_granted",
		"grants": [
			{"metering_point_id": "707057500000000001", "consent_id": "consent-1"},
			{"metering_point_id": "707057500000000002", "consent_id": "consent-2"}
		]
	}`)

	n, err := New(nil).Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, connector.OutcomeAccepted, n.Outcome)
	require.Len(t, n.Grants, 2)
	assert.Equal(t, id.ExternalRequestID("ext-1"), n.Grants[0].ExternalRequestID)
	assert.Equal(t, id.ConsentID("consent-2"), n.Grants[1].ConsentID)
}

func TestDecodeGrantedWithoutGrantsFails(t *testing.T) {
	_, err := New(nil).Decode([]byte(`{"state":"conv-1","event":"authorization_granted"}`))
	require.Error(t, err)
}

func TestDecodeAccessDeniedMapsOAuthErrors(t *testing.T) {
	cases := []struct {
		oauthError string
		reason     permission.RejectionReason
		invalid    bool
	}{
		{"resolution_not_supported", permission.ReasonGranularityNotDeliverable, false},
		{"invalid_request", permission.ReasonUnspecified, true},
		{"access_denied", permission.ReasonConsentDenied, false},
		{"server_error", permission.ReasonUnspecified, false},
	}
	for _, tc := range cases {
		payload := []byte(`{"state":"conv-1","event":"access_denied","error":"` + tc.oauthError + `","error_description":"denied"}`)

		n, err := New(nil).Decode(payload)
		require.NoError(t, err, tc.oauthError)
		assert.Equal(t, connector.OutcomeRejected, n.Outcome, tc.oauthError)
		assert.Equal(t, tc.reason, n.Reason, tc.oauthError)
		assert.Equal(t, tc.invalid, n.Invalid, tc.oauthError)
	}
}

func TestTableAddsPendingAcknowledgementRows(t *testing.T) {
	table := New(nil).Table()

	assert.True(t, table.Allowed(permission.StatusValidated, permission.KindPendingAcknowledgement))
	assert.True(t, table.Allowed(permission.StatusPendingAcknowledgement, permission.KindSent))
	assert.True(t, table.Allowed(permission.StatusPendingAcknowledgement, permission.KindTimedOut))
	assert.True(t, table.Allowed(permission.StatusPendingAcknowledgement, permission.KindExternallyTerminated))
}

func TestDecodeUnknownEventFails(t *testing.T) {
	_, err := New(nil).Decode([]byte(`{"state":"conv-1","event":"mystery"}`))
	require.Error(t, err)
}
