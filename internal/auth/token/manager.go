// Package token keeps integration access tokens valid: the fast path returns
// the stored credential untouched, the slow path exchanges the provider grant
// for a fresh token and persists it.
package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/finboardhq/finboard/internal/db/models"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/telemetry"
	"golang.org/x/oauth2"
)

var (
	// ErrNotConnected: no usable credential for the user/provider pair. The
	// integration needs a fresh authorization, not another refresh attempt.
	ErrNotConnected = errors.New("integration not connected")

	// ErrUnavailable: transient failure talking to the provider's token
	// endpoint. The stored credential is untouched; the next request retries.
	ErrUnavailable = errors.New("token temporarily unavailable")
)

// Manager handles the token lifecycle for all registered providers.
type Manager struct {
	store      *store.CredentialStore
	registry   *providers.Registry
	tlmt       telemetry.Telemetry
	skew       time.Duration
	httpClient *http.Client

	now func() time.Time
}

// NewManager creates a token manager. skew is the expiry lookahead window;
// callTimeout bounds each token-endpoint call.
func NewManager(s *store.CredentialStore, r *providers.Registry, tlmt telemetry.Telemetry, skew, callTimeout time.Duration) *Manager {
	return &Manager{
		store:      s,
		registry:   r,
		tlmt:       tlmt,
		skew:       skew,
		httpClient: &http.Client{Timeout: callTimeout},
		now:        time.Now,
	}
}

// EnsureValidToken returns a currently-valid credential for (userID, provider),
// refreshing via the provider's token endpoint when the stored token is
// expired or expiring within the skew window.
//
// No in-process locking: two concurrent stale observers may both refresh, and
// the credential record tolerates last-write-wins.
func (m *Manager) EnsureValidToken(ctx context.Context, userID, providerName string) (*models.IntegrationCredential, error) {
	cred, err := m.store.Get(ctx, userID, providerName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	if !cred.Usable() {
		return nil, ErrNotConnected
	}

	if !cred.Expiring(m.now(), m.skew) {
		// Common fast path: token still fresh, zero network calls.
		return cred, nil
	}

	p, err := m.registry.Get(providerName)
	if err != nil {
		return nil, err
	}
	if p.Grant == providers.GrantStatic {
		// Static tokens carry no refresh grant; an expiry on the record is a
		// provider-side revocation signal handled by the data call itself.
		return cred, nil
	}

	return m.refresh(ctx, p, cred)
}

// refresh performs a single synchronous token-endpoint call and persists the
// result. Terminal provider rejections disconnect the integration one-way.
func (m *Manager) refresh(ctx context.Context, p *providers.Provider, cred *models.IntegrationCredential) (*models.IntegrationCredential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	var newToken *oauth2.Token
	var err error
	switch p.Grant {
	case providers.GrantRefreshToken:
		src := p.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
		newToken, err = src.Token()
	case providers.GrantClientCredentials:
		newToken, err = p.ClientCreds.Token(ctx)
	default:
		return nil, fmt.Errorf("provider %s has no refresh grant", p.Name)
	}

	if err != nil {
		if isTerminalRefreshError(err) {
			log.Printf("🔒 Terminal refresh failure for %s/%s, disconnecting: %v", cred.UserID, p.Name, err)
			if dErr := m.store.MarkDisconnected(ctx, cred.UserID, p.Name, err.Error()); dErr != nil {
				log.Printf("⚠️ Failed to persist disconnect for %s/%s: %v", cred.UserID, p.Name, dErr)
			}
			m.sendEvent(ctx, cred.UserID, "integration_refresh_terminal", p.Name, err.Error())
			return nil, ErrNotConnected
		}
		log.Printf("⏳ Transient refresh failure for %s/%s: %v", cred.UserID, p.Name, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	cred.AccessToken = newToken.AccessToken
	cred.ExpiresAt = newToken.Expiry
	// Persist rotated refresh token if the provider issued one (RFC 6749).
	if newToken.RefreshToken != "" && newToken.RefreshToken != cred.RefreshToken {
		log.Printf("🔄 Rotating refresh token for %s/%s", cred.UserID, p.Name)
		cred.RefreshToken = newToken.RefreshToken
	}

	if err := m.store.Put(ctx, cred); err != nil {
		return nil, err
	}

	log.Printf("✅ Refreshed %s token for %s (expires %s)", p.Name, cred.UserID, cred.ExpiresAt.Format(time.RFC3339))
	return cred, nil
}

func (m *Manager) sendEvent(ctx context.Context, userID, name, provider, detail string) {
	if m.tlmt == nil {
		return
	}
	if err := m.tlmt.Send(ctx, telemetry.Event{
		Name:       name,
		DistinctID: userID,
		Properties: map[string]interface{}{"provider": provider, "detail": detail},
	}); err != nil {
		log.Printf("⚠️ Telemetry send failed: %v", err)
	}
}

// isTerminalRefreshError reports whether a token-endpoint failure means the
// grant is dead (re-authorization required) rather than temporarily unusable.
func isTerminalRefreshError(err error) bool {
	if err == nil {
		return false
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := retrieveErr.Response.StatusCode
		// 429 and server errors are retryable on a later request; the rest of
		// the 4xx range means the grant or client registration is rejected.
		if code == http.StatusTooManyRequests || code >= 500 {
			return false
		}
		if code >= 400 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
