// Package providers describes the supported financial integrations: which
// OAuth grant keeps their tokens alive and where their data APIs live.
package providers

import (
	"fmt"

	"github.com/finboardhq/finboard/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Grant identifies how a provider's access tokens are obtained and renewed.
type Grant string

const (
	// GrantRefreshToken: authorization-code flow with rotating refresh tokens (Xero).
	GrantRefreshToken Grant = "refresh_token"
	// GrantClientCredentials: app-level token minted from client id/secret (PayPal).
	GrantClientCredentials Grant = "client_credentials"
	// GrantStatic: long-lived access token that never expires and is never
	// refreshed (Plaid item access tokens).
	GrantStatic Grant = "static"
)

// Provider names. These are the values stored in the credential record.
const (
	Xero   = "xero"
	PayPal = "paypal"
	Plaid  = "plaid"
)

// Provider is one registered integration.
type Provider struct {
	Name        string
	Grant       Grant
	DataBaseURL string

	// OAuth is set for refresh-token providers.
	OAuth *oauth2.Config
	// ClientCreds is set for client-credentials providers.
	ClientCreds *clientcredentials.Config

	// ClientID/ClientSecret are carried for providers (Plaid) that authenticate
	// data calls with body-level credentials rather than a bearer header alone.
	ClientID     string
	ClientSecret string
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[string]*Provider
}

// FromConfig builds the registry. Token and data URLs come from config so
// tests can point them at local fakes.
func FromConfig(cfg *config.Config) *Registry {
	r := &Registry{providers: make(map[string]*Provider)}

	r.providers[Xero] = &Provider{
		Name:        Xero,
		Grant:       GrantRefreshToken,
		DataBaseURL: cfg.Xero.DataBaseURL,
		OAuth: &oauth2.Config{
			ClientID:     cfg.Xero.ClientID,
			ClientSecret: cfg.Xero.ClientSecret,
			RedirectURL:  cfg.CallbackBaseURL + "/connect/xero/callback",
			Scopes:       []string{"offline_access", "accounting.transactions.read", "accounting.reports.read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Xero.AuthURL,
				TokenURL:  cfg.Xero.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}

	r.providers[PayPal] = &Provider{
		Name:        PayPal,
		Grant:       GrantClientCredentials,
		DataBaseURL: cfg.PayPal.DataBaseURL,
		ClientCreds: &clientcredentials.Config{
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			TokenURL:     cfg.PayPal.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}

	r.providers[Plaid] = &Provider{
		Name:         Plaid,
		Grant:        GrantStatic,
		DataBaseURL:  cfg.Plaid.DataBaseURL,
		ClientID:     cfg.Plaid.ClientID,
		ClientSecret: cfg.Plaid.ClientSecret,
	}

	return r
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// Names returns the registered provider names in a stable order.
func (r *Registry) Names() []string {
	return []string{Xero, PayPal, Plaid}
}
