package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finboardhq/finboard/internal/config"
	"github.com/finboardhq/finboard/internal/db/models"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/retry"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/telemetry"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type tokenEndpoint struct {
	hits   atomic.Int64
	status int
	body   string
}

func (e *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.hits.Add(1)
	w.Header().Set("Content-Type", "application/json")
	if e.status != 0 && e.status != http.StatusOK {
		w.WriteHeader(e.status)
	}
	fmt.Fprint(w, e.body)
}

func newTestStore(t *testing.T) *store.CredentialStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.IntegrationCredential{}, &models.AnalyticsEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.NewCredentialStore(db, retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
}

func newTestManager(t *testing.T, tokenURL string) (*Manager, *store.CredentialStore) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.CallbackBaseURL = "https://app.example.com"
	cfg.Xero.ClientID = "xid"
	cfg.Xero.ClientSecret = "xsecret"
	cfg.Xero.TokenURL = tokenURL
	cfg.PayPal.ClientID = "pid"
	cfg.PayPal.ClientSecret = "psecret"
	cfg.PayPal.TokenURL = tokenURL
	cfg.Plaid.ClientID = "plid"
	cfg.Plaid.ClientSecret = "plsecret"

	s := newTestStore(t)
	m := NewManager(s, providers.FromConfig(cfg), telemetry.NewNoop(), 5*time.Minute, 5*time.Second)
	return m, s
}

func seedCredential(t *testing.T, s *store.CredentialStore, cred models.IntegrationCredential) models.IntegrationCredential {
	t.Helper()
	if err := s.Put(context.Background(), &cred); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	return cred
}

func TestEnsureValidToken_FreshTokenSkipsNetwork(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{"access_token":"new","expires_in":1800}`}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	m, s := newTestManager(t, srv.URL)
	connectedAt := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	seedCredential(t, s, models.IntegrationCredential{
		UserID:       "user-1",
		Provider:     providers.Xero,
		AccessToken:  "fresh-token",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour),
		ConnectedAt:  connectedAt,
		Connected:    true,
	})

	cred, err := m.EnsureValidToken(context.Background(), "user-1", providers.Xero)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if cred.AccessToken != "fresh-token" {
		t.Errorf("expected stored token returned unchanged, got %s", cred.AccessToken)
	}
	if endpoint.hits.Load() != 0 {
		t.Errorf("expected zero network calls on fresh path, got %d", endpoint.hits.Load())
	}
}

func TestEnsureValidToken_StaleTokenRefreshesOnce(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{"access_token":"rotated-at","refresh_token":"rotated-rt","expires_in":1800,"token_type":"Bearer"}`}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	m, s := newTestManager(t, srv.URL)
	staleExpiry := time.Now().Add(time.Minute) // inside the 5m skew window
	connectedAt := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	seedCredential(t, s, models.IntegrationCredential{
		UserID:       "user-1",
		Provider:     providers.Xero,
		AccessToken:  "stale-at",
		RefreshToken: "old-rt",
		ExpiresAt:    staleExpiry,
		ConnectedAt:  connectedAt,
		Connected:    true,
	})

	cred, err := m.EnsureValidToken(context.Background(), "user-1", providers.Xero)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if endpoint.hits.Load() != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", endpoint.hits.Load())
	}
	if cred.AccessToken != "rotated-at" {
		t.Errorf("expected refreshed access token, got %s", cred.AccessToken)
	}
	if cred.RefreshToken != "rotated-rt" {
		t.Errorf("expected rotated refresh token persisted, got %s", cred.RefreshToken)
	}
	if !cred.ExpiresAt.After(staleExpiry) {
		t.Errorf("expected expiry strictly increased, was %v now %v", staleExpiry, cred.ExpiresAt)
	}

	stored, err := s.Get(context.Background(), "user-1", providers.Xero)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.AccessToken != "rotated-at" {
		t.Errorf("expected refreshed token persisted, got %s", stored.AccessToken)
	}
	if !stored.ConnectedAt.Equal(connectedAt) {
		t.Errorf("expected ConnectedAt unchanged at %v, got %v", connectedAt, stored.ConnectedAt)
	}
}

func TestEnsureValidToken_TerminalRejectionDisconnects(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusBadRequest, body: `{"error":"invalid_grant"}`}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	m, s := newTestManager(t, srv.URL)
	seedCredential(t, s, models.IntegrationCredential{
		UserID:       "user-1",
		Provider:     providers.Xero,
		AccessToken:  "stale-at",
		RefreshToken: "revoked-rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
		Connected:    true,
	})

	_, err := m.EnsureValidToken(context.Background(), "user-1", providers.Xero)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if endpoint.hits.Load() != 1 {
		t.Fatalf("expected one refresh call, got %d", endpoint.hits.Load())
	}

	stored, err := s.Get(context.Background(), "user-1", providers.Xero)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Connected {
		t.Error("expected credential disconnected after terminal rejection")
	}
	if stored.LastError == "" {
		t.Error("expected LastError recorded")
	}

	// Idempotent: the disconnected record fails fast with no further network.
	_, err = m.EnsureValidToken(context.Background(), "user-1", providers.Xero)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected on second call, got %v", err)
	}
	if endpoint.hits.Load() != 1 {
		t.Fatalf("expected no further network calls, got %d", endpoint.hits.Load())
	}
}

func TestEnsureValidToken_TransientFailureKeepsConnected(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusServiceUnavailable, body: `{"error":"temporarily_unavailable"}`}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	m, s := newTestManager(t, srv.URL)
	seedCredential(t, s, models.IntegrationCredential{
		UserID:       "user-1",
		Provider:     providers.Xero,
		AccessToken:  "stale-at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
		Connected:    true,
	})

	_, err := m.EnsureValidToken(context.Background(), "user-1", providers.Xero)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	stored, err := s.Get(context.Background(), "user-1", providers.Xero)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Connected {
		t.Error("transient failure must not disconnect the integration")
	}
}

func TestEnsureValidToken_MissingRecord(t *testing.T) {
	m, _ := newTestManager(t, "http://127.0.0.1:1")

	_, err := m.EnsureValidToken(context.Background(), "nobody", providers.Xero)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestEnsureValidToken_StaticGrantNeverRefreshes(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{}`}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	m, s := newTestManager(t, srv.URL)
	seedCredential(t, s, models.IntegrationCredential{
		UserID:      "user-1",
		Provider:    providers.Plaid,
		AccessToken: "access-sandbox-123",
		Connected:   true,
		// zero ExpiresAt: static token, never expiring
	})

	cred, err := m.EnsureValidToken(context.Background(), "user-1", providers.Plaid)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if cred.AccessToken != "access-sandbox-123" {
		t.Errorf("expected stored static token, got %s", cred.AccessToken)
	}
	if endpoint.hits.Load() != 0 {
		t.Errorf("expected zero network calls for static grant, got %d", endpoint.hits.Load())
	}
}

func TestEnsureValidToken_ClientCredentialsGrant(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{"access_token":"pp-at","expires_in":900,"token_type":"Bearer"}`}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	m, s := newTestManager(t, srv.URL)
	seedCredential(t, s, models.IntegrationCredential{
		UserID:      "user-1",
		Provider:    providers.PayPal,
		AccessToken: "expired-at",
		ExpiresAt:   time.Now().Add(-time.Minute),
		Connected:   true,
	})

	cred, err := m.EnsureValidToken(context.Background(), "user-1", providers.PayPal)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if cred.AccessToken != "pp-at" {
		t.Errorf("expected minted client-credentials token, got %s", cred.AccessToken)
	}
	if endpoint.hits.Load() != 1 {
		t.Fatalf("expected one token call, got %d", endpoint.hits.Load())
	}
}

func TestIsTerminalRefreshError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		terminal bool
	}{
		{name: "nil", err: nil, terminal: false},
		{name: "invalid grant text", err: errors.New(`oauth2: "invalid_grant"`), terminal: true},
		{name: "revoked", err: errors.New("token has been expired or revoked"), terminal: true},
		{name: "timeout", err: errors.New("context deadline exceeded"), terminal: false},
		{name: "temporarily unavailable", err: errors.New("temporarily_unavailable"), terminal: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTerminalRefreshError(tt.err); got != tt.terminal {
				t.Fatalf("expected %v, got %v", tt.terminal, got)
			}
		})
	}
}
