// Package identity verifies caller bearer tokens against the hosted identity
// service. The service is consumed only through its documented verification
// endpoint; nothing about sessions or user records is managed here.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned when the identity service rejects the token.
var ErrUnauthorized = errors.New("identity token rejected")

// Verifier resolves a bearer token to a user identifier.
type Verifier interface {
	Verify(ctx context.Context, bearer string) (userID string, err error)
}

// HTTPVerifier calls the identity service's userinfo endpoint.
type HTTPVerifier struct {
	baseURL    string
	audience   string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier for the given identity service base URL.
func NewHTTPVerifier(baseURL, audience string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		audience:   audience,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify calls GET {base}/userinfo with the caller's bearer token and returns
// the subject claim.
func (v *HTTPVerifier) Verify(ctx context.Context, bearer string) (string, error) {
	if bearer == "" {
		return "", ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/userinfo", nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if v.audience != "" {
		req.Header.Set("X-Audience", v.audience)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity service returned %d", resp.StatusCode)
	}

	var claims struct {
		Sub    string `json:"sub"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return "", fmt.Errorf("decode userinfo response: %w", err)
	}

	userID := claims.Sub
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return "", ErrUnauthorized
	}
	return userID, nil
}
