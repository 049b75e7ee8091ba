// Package no integrates the Norwegian administrator through its OAuth
// pushed-authorization flow. Sends push an authorization request signed with
// a client assertion; the administrator acknowledges asynchronously, then the
// end user grants or denies consent.
package no

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gridgate/internal/connector"
)

const defaultSendTimeout = 15 * time.Second

// PushedAuthAdapter submits pushed authorization requests. The OAuth
// cryptographic detail beyond the client assertion lives with the
// administrator; transport failures map to UNABLE_TO_SEND as usual.
type PushedAuthAdapter struct {
	endpoint     string
	clientID     string
	clientSecret []byte
	client       *http.Client
}

func NewPushedAuthAdapter(endpoint, clientID string, clientSecret []byte, timeout time.Duration) *PushedAuthAdapter {
	if timeout == 0 {
		timeout = defaultSendTimeout
	}
	return &PushedAuthAdapter{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
	}
}

func (a *PushedAuthAdapter) Send(ctx context.Context, out connector.Outbound) error {
	assertion, err := a.clientAssertion(out)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("client_assertion_type", "urn:ietf:params:oauth:client-assertion-type:jwt-bearer")
	form.Set("client_assertion", assertion)
	form.Set("scope", consumptionScope(out))
	form.Set("state", out.ConversationID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build pushed authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("push authorization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push authorization request: endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// clientAssertion builds the signed JWT identifying this client to the
// authorization server, keyed to the conversation so replays are detectable.
func (a *PushedAuthAdapter) clientAssertion(out connector.Outbound) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": a.clientID,
		"sub": a.clientID,
		"aud": a.endpoint,
		"jti": out.ConversationID.String(),
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.clientSecret)
	if err != nil {
		return "", fmt.Errorf("sign client assertion: %w", err)
	}
	return signed, nil
}

func consumptionScope(out connector.Outbound) string {
	return fmt.Sprintf("consumption:%s:%s:%s",
		out.Request.Granularity,
		out.Request.Timeframe.Start.Format("2006-01-02"),
		out.Request.Timeframe.End.Format("2006-01-02"),
	)
}
