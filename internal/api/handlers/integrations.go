package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/finboardhq/finboard/internal/api/middleware"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

type integrationStatus struct {
	Provider    string     `json:"provider"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// IntegrationsHandler lists the caller's connection status per provider.
// GET /api/integrations
func IntegrationsHandler(registry *providers.Registry, s *store.CredentialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		creds, err := s.ListByUser(r.Context(), userID)
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}

		byProvider := make(map[string]integrationStatus, len(creds))
		for i := range creds {
			c := creds[i]
			status := integrationStatus{
				Provider:    c.Provider,
				Connected:   c.Connected,
				ConnectedAt: &c.ConnectedAt,
				LastError:   c.LastError,
			}
			if !c.ExpiresAt.IsZero() {
				status.ExpiresAt = &c.ExpiresAt
			}
			byProvider[c.Provider] = status
		}

		statuses := make([]integrationStatus, 0, len(registry.Names()))
		for _, name := range registry.Names() {
			if status, ok := byProvider[name]; ok {
				statuses = append(statuses, status)
			} else {
				statuses = append(statuses, integrationStatus{Provider: name})
			}
		}

		WriteData(w, http.StatusOK, map[string]interface{}{"integrations": statuses})
	}
}

// DisconnectHandler marks an integration disconnected at the user's request.
// The record is kept for audit; re-linking goes through the connect flow.
// POST /api/integrations/{provider}/disconnect
func DisconnectHandler(s *store.CredentialStore, tlmt telemetry.Telemetry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		providerName := chi.URLParam(r, "provider")

		err := s.MarkDisconnected(r.Context(), userID, providerName, "disconnected by user")
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusBadRequest, CodeNotConnected, "integration not connected")
			return
		}
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}

		if err := tlmt.Send(r.Context(), telemetry.Event{
			Name:       "integration_disconnected",
			DistinctID: userID,
			Properties: map[string]interface{}{"provider": providerName},
		}); err != nil {
			log.Printf("⚠️ Telemetry send failed: %v", err)
		}

		WriteData(w, http.StatusOK, map[string]interface{}{"provider": providerName, "connected": false})
	}
}
