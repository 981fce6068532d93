package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/finboardhq/finboard/internal/api/middleware"
	"github.com/finboardhq/finboard/internal/db/models"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/telemetry"
	"github.com/finboardhq/finboard/internal/upstream"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const stateTTL = 10 * time.Minute

type pendingState struct {
	userID   string
	provider string
	expires  time.Time
}

// Connect owns the provider linking flow: consent URL, OAuth callback,
// Plaid public-token exchange, and the app-grant shortcut for PayPal.
type Connect struct {
	registry *providers.Registry
	store    *store.CredentialStore
	upstream *upstream.Client
	tlmt     telemetry.Telemetry

	mu     sync.Mutex
	states map[string]pendingState
}

// NewConnect creates the linking handler set.
func NewConnect(registry *providers.Registry, s *store.CredentialStore, u *upstream.Client, tlmt telemetry.Telemetry) *Connect {
	return &Connect{
		registry: registry,
		store:    s,
		upstream: u,
		tlmt:     tlmt,
		states:   make(map[string]pendingState),
	}
}

// Login starts linking for the caller.
// GET /api/connect/{provider}/login
//
// Refresh-token providers get an authorize URL for the SPA to redirect to.
// PayPal's client-credentials grant needs no user consent: the credential is
// created immediately and the first data call mints its token.
func (c *Connect) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		providerName := chi.URLParam(r, "provider")

		p, err := c.registry.Get(providerName)
		if err != nil {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}

		switch p.Grant {
		case providers.GrantRefreshToken:
			state := uuid.New().String()
			c.storeState(state, pendingState{userID: userID, provider: providerName, expires: time.Now().Add(stateTTL)})
			WriteData(w, http.StatusOK, map[string]string{
				"authorize_url": p.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline),
				"state":         state,
			})

		case providers.GrantClientCredentials:
			cred := &models.IntegrationCredential{
				UserID:      userID,
				Provider:    providerName,
				ConnectedAt: time.Now(),
				ExpiresAt:   time.Now(), // forces a mint on first use
				Connected:   true,
			}
			if err := c.store.Put(r.Context(), cred); err != nil {
				WriteDomainError(w, r, err)
				return
			}
			c.sendConnected(r.Context(), userID, providerName)
			WriteData(w, http.StatusOK, map[string]interface{}{"connected": true, "provider": providerName})

		default:
			WriteError(w, http.StatusBadRequest, CodeBadRequest,
				providerName+" links through its own exchange endpoint")
		}
	}
}

// Callback completes the authorization-code flow.
// GET /connect/{provider}/callback?code=...&state=...
//
// This arrives from the provider's redirect, so the caller is identified by
// the state value issued at login, not by a bearer token.
func (c *Connect) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerName := chi.URLParam(r, "provider")
		state := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")

		if errParam := r.URL.Query().Get("error"); errParam != "" {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "provider denied authorization: "+errParam)
			return
		}

		pending, ok := c.takeState(state)
		if !ok || pending.provider != providerName {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "unknown or expired state")
			return
		}

		p, err := c.registry.Get(providerName)
		if err != nil || p.Grant != providers.GrantRefreshToken {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "provider does not use an authorization callback")
			return
		}

		tok, err := p.OAuth.Exchange(r.Context(), code)
		if err != nil {
			log.Printf("⚠️ %s code exchange failed for %s: %v", providerName, pending.userID, err)
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "authorization code exchange failed")
			return
		}

		cred := &models.IntegrationCredential{
			UserID:       pending.userID,
			Provider:     providerName,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.Expiry,
			ConnectedAt:  time.Now(),
			Connected:    true,
		}
		if err := c.store.Put(r.Context(), cred); err != nil {
			WriteDomainError(w, r, err)
			return
		}

		log.Printf("✅ Linked %s for %s", providerName, pending.userID)
		c.sendConnected(r.Context(), pending.userID, providerName)
		WriteData(w, http.StatusOK, map[string]interface{}{"connected": true, "provider": providerName})
	}
}

// PlaidExchange completes Plaid Link.
// POST /api/connect/plaid/exchange {"public_token": "..."}
func (c *Connect) PlaidExchange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		var body struct {
			PublicToken string `json:"public_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PublicToken == "" {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "public_token required")
			return
		}

		accessToken, itemID, err := c.upstream.ExchangePlaidPublicToken(r.Context(), body.PublicToken)
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}

		cred := &models.IntegrationCredential{
			UserID:      userID,
			Provider:    providers.Plaid,
			AccessToken: accessToken,
			ConnectedAt: time.Now(),
			Connected:   true,
			// zero ExpiresAt: Plaid item tokens do not expire
		}
		if err := c.store.Put(r.Context(), cred); err != nil {
			WriteDomainError(w, r, err)
			return
		}

		log.Printf("✅ Linked plaid item %s for %s", itemID, userID)
		c.sendConnected(r.Context(), userID, providers.Plaid)
		WriteData(w, http.StatusOK, map[string]interface{}{"connected": true, "provider": providers.Plaid, "item_id": itemID})
	}
}

func (c *Connect) storeState(state string, pending pendingState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Lazy prune keeps the map bounded without a background sweeper.
	now := time.Now()
	for k, v := range c.states {
		if now.After(v.expires) {
			delete(c.states, k)
		}
	}
	c.states[state] = pending
}

func (c *Connect) takeState(state string) (pendingState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending, ok := c.states[state]
	if !ok {
		return pendingState{}, false
	}
	delete(c.states, state)
	if time.Now().After(pending.expires) {
		return pendingState{}, false
	}
	return pending, true
}

func (c *Connect) sendConnected(ctx context.Context, userID, provider string) {
	if err := c.tlmt.Send(ctx, telemetry.Event{
		Name:       "integration_connected",
		DistinctID: userID,
		Properties: map[string]interface{}{"provider": provider},
	}); err != nil {
		log.Printf("⚠️ Telemetry send failed: %v", err)
	}
}
