// Package dk integrates the Danish administrator over its XML message
// protocol. All wire-format knowledge lives here; the engine only sees the
// neutral notification shape.
package dk

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"gridgate/internal/connector"
)

const defaultSendTimeout = 20 * time.Second

// HTTPAdapter submits permission request documents to the administrator's
// message endpoint. Transport failures surface as errors and map to
// UNABLE_TO_SEND; the scheduled retry job owns every re-attempt.
type HTTPAdapter struct {
	endpoint  string
	senderGLN string
	client    *http.Client
}

func NewHTTPAdapter(endpoint, senderGLN string, timeout time.Duration) *HTTPAdapter {
	if timeout == 0 {
		timeout = defaultSendTimeout
	}
	return &HTTPAdapter{
		endpoint:  endpoint,
		senderGLN: senderGLN,
		client:    &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAdapter) Send(ctx context.Context, out connector.Outbound) error {
	doc := requestDocument{
		SenderGLN:       a.senderGLN,
		ConversationID:  out.ConversationID.String(),
		ConnectionID:    out.Request.ConnectionID.String(),
		MeteringPointID: out.Request.MeteringPointID.String(),
		Start:           out.Request.Timeframe.Start.Format(time.RFC3339),
		End:             out.Request.Timeframe.End.Format(time.RFC3339),
		Resolution:      string(out.Request.Granularity),
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal permission request document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send permission request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send permission request: administrator endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// requestDocument is the outbound wire shape.
type requestDocument struct {
	XMLName         xml.Name `xml:"PermissionRequest"`
	SenderGLN       string   `xml:"SenderGLN,omitempty"`
	ConversationID  string   `xml:"ConversationId"`
	ConnectionID    string   `xml:"SenderReference"`
	MeteringPointID string   `xml:"MeteringPointId,omitempty"`
	Start           string   `xml:"Period>Start"`
	End             string   `xml:"Period>End"`
	Resolution      string   `xml:"Resolution"`
}
