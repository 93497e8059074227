// Package identity is the game service's client of the external identity
// service: a stateless, synchronous verify_token adapter. Grounded on
// original_source/game_server/src/interface_adapters/clients/auth.rs
// (AuthClient.verify_token), translated to Go idiom: net/http.Client with a
// bounded Timeout, json.Marshal/Unmarshal, status-code dispatch.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors returned by Verifier.VerifyToken. Compared with errors.Is.
var (
	ErrInvalidToken        = errors.New("identity: invalid token")
	ErrSessionExpired      = errors.New("identity: session expired")
	ErrUpstreamUnavailable = errors.New("identity: upstream unavailable")
)

// VerifiedIdentity is the decoded success response from the identity service.
type VerifiedIdentity struct {
	UserID      uint64 `json:"user_id"`
	DisplayName string `json:"display_name"`
	SessionID   string `json:"session_id"`
	ExpiresAt   uint64 `json:"expires_at"`
}

// Verifier checks a session token against the identity service.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (VerifiedIdentity, error)
}

// HTTPVerifier is the default, stateless Verifier implementation. Safe for
// concurrent use — it holds only an *http.Client and a base URL, the same
// pattern the teacher uses for its shared, stateless upgrader struct.
type HTTPVerifier struct {
	client  *http.Client
	baseURL string
}

// NewHTTPVerifier returns a Verifier that posts to baseURL + "/auth/verify-token"
// with the given timeout bounding every request (default ~1.5s per spec).
func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &HTTPVerifier{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyErrorBody struct {
	Message string `json:"message"`
}

// VerifyToken issues a single POST with no retries. Upstream failures
// translate to a clean connection refusal; the client retries at reconnect.
func (v *HTTPVerifier) VerifyToken(ctx context.Context, token string) (VerifiedIdentity, error) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		// Should not occur: the payload is a single plain string field.
		return VerifiedIdentity{}, fmt.Errorf("%w: encode request: %v", ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/auth/verify-token", bytes.NewReader(body))
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var identity VerifiedIdentity
		if err := json.Unmarshal(payload, &identity); err != nil {
			return VerifiedIdentity{}, fmt.Errorf("%w: decode body: %v", ErrUpstreamUnavailable, err)
		}
		return identity, nil

	case resp.StatusCode == http.StatusUnauthorized:
		var errBody verifyErrorBody
		if err := json.Unmarshal(payload, &errBody); err == nil && errBody.Message == "session expired" {
			return VerifiedIdentity{}, ErrSessionExpired
		}
		return VerifiedIdentity{}, ErrInvalidToken

	default:
		return VerifiedIdentity{}, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
}
