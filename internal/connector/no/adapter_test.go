package no

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridgate/internal/connector"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

func outboundFixture() connector.Outbound {
	return connector.Outbound{
		Request: &permission.Request{
			PermissionID: "perm-1",
			ConnectionID: "conn-1",
			Granularity:  permission.GranularityHour,
			Timeframe: permission.Timeframe{
				Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			},
		},
		ConversationID: "conv-1",
	}
}

func TestSendPushesSignedAuthorizationRequest(t *testing.T) {
	secret := []byte("client-secret")
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"client_id":             r.PostFormValue("client_id"),
			"client_assertion_type": r.PostFormValue("client_assertion_type"),
			"client_assertion":      r.PostFormValue("client_assertion"),
			"scope":                 r.PostFormValue("scope"),
			"state":                 r.PostFormValue("state"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	adapter := NewPushedAuthAdapter(server.URL, "client-1", secret, 0)
	require.NoError(t, adapter.Send(context.Background(), outboundFixture()))

	assert.Equal(t, "client-1", form["client_id"])
	assert.Equal(t, "urn:ietf:params:oauth:client-assertion-type:jwt-bearer", form["client_assertion_type"])
	assert.Equal(t, "consumption:PT1H:2026-01-01:2026-06-30", form["scope"])
	assert.Equal(t, "conv-1", form["state"])

	token, err := jwt.Parse(form["client_assertion"], func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "client-1", claims["iss"])
	assert.Equal(t, "conv-1", claims["jti"], "assertions are keyed to the conversation")
}

func TestSendRejectsErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewPushedAuthAdapter(server.URL, "client-1", []byte("client-secret"), 0)
	err := adapter.Send(context.Background(), outboundFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestConnectorContract(t *testing.T) {
	conn := New(NewPushedAuthAdapter("http://example.invalid", "client-1", nil, 0))
	assert.Equal(t, id.RegionNO, conn.Region())
	assert.True(t, conn.AcknowledgesSend(), "sends settle asynchronously")
	assert.False(t, conn.ConfirmsTermination(), "revocation takes effect immediately")
}
