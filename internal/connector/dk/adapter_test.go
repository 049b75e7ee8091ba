package dk

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridgate/internal/connector"
	"gridgate/internal/permission"
	id "gridgate/pkg/domain"
)

func outboundFixture() connector.Outbound {
	return connector.Outbound{
		Request: &permission.Request{
			PermissionID:    "perm-1",
			ConnectionID:    "conn-1",
			MeteringPointID: "571313100000000001",
			Granularity:     permission.GranularityHour,
			Timeframe: permission.Timeframe{
				Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC),
			},
		},
		ConversationID: "conv-1",
	}
}

func TestSendPostsPermissionRequestDocument(t *testing.T) {
	var received requestDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, xml.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.URL, "5790000000005", 0)
	require.NoError(t, adapter.Send(context.Background(), outboundFixture()))

	assert.Equal(t, "5790000000005", received.SenderGLN)
	assert.Equal(t, "conv-1", received.ConversationID)
	assert.Equal(t, "conn-1", received.ConnectionID)
	assert.Equal(t, "571313100000000001", received.MeteringPointID)
	assert.Equal(t, "PT1H", received.Resolution)
	assert.Equal(t, "2026-01-01T00:00:00Z", received.Start)
}

func TestSendRejectsNon2xxResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.URL, "5790000000005", 0)
	err := adapter.Send(context.Background(), outboundFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendFailsWhenEndpointUnreachable(t *testing.T) {
	adapter := NewHTTPAdapter("http://127.0.0.1:1", "5790000000005", time.Second)
	err := adapter.Send(context.Background(), outboundFixture())
	require.Error(t, err)
}

func TestConnectorContract(t *testing.T) {
	conn := New(NewHTTPAdapter("http://example.invalid", "", 0))
	assert.Equal(t, id.RegionDK, conn.Region())
	assert.False(t, conn.AcknowledgesSend(), "the protocol has no send-ack step")
	assert.True(t, conn.ConfirmsTermination(), "termination waits for the administrator's confirmation")
}
