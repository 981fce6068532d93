// Package store persists per-user integration credentials. Every write goes
// through a bounded-retry policy so transient database trouble does not drop
// a token update on the floor.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/finboardhq/finboard/internal/db/models"
	"github.com/finboardhq/finboard/internal/retry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no credential record exists for (user, provider).
var ErrNotFound = errors.New("credential not found")

// StoreError wraps a persistence failure that survived the retry policy.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// CredentialStore reads and writes integration credentials.
type CredentialStore struct {
	db     *gorm.DB
	policy retry.Policy
}

// NewCredentialStore creates a store using the given retry policy for writes.
func NewCredentialStore(db *gorm.DB, policy retry.Policy) *CredentialStore {
	return &CredentialStore{db: db, policy: policy}
}

// Get returns the credential for (userID, provider), or ErrNotFound.
func (s *CredentialStore) Get(ctx context.Context, userID, provider string) (*models.IntegrationCredential, error) {
	var cred models.IntegrationCredential
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	return &cred, nil
}

// ListByUser returns all credential records for a user, connected or not.
func (s *CredentialStore) ListByUser(ctx context.Context, userID string) ([]models.IntegrationCredential, error) {
	var creds []models.IntegrationCredential
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("provider").Find(&creds).Error; err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return creds, nil
}

// Put upserts the credential keyed by (UserID, Provider), retrying transient
// failures. A record missing its key fields is terminal and never retried.
// ExpiresAt never moves backward on a connected record.
func (s *CredentialStore) Put(ctx context.Context, cred *models.IntegrationCredential) error {
	if cred.UserID == "" || cred.Provider == "" {
		return &StoreError{Op: "put", Err: errors.New("credential missing user_id or provider")}
	}
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}

	err := retry.Do(ctx, s.policy, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.IntegrationCredential
			err := tx.Where("user_id = ? AND provider = ?", cred.UserID, cred.Provider).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return tx.Create(cred).Error
			case err != nil:
				return err
			}

			cred.ID = existing.ID
			if cred.Connected && existing.Connected && cred.ExpiresAt.Before(existing.ExpiresAt) {
				return retry.Permanent(fmt.Errorf("expires_at regression: %s before %s",
					cred.ExpiresAt.Format(time.RFC3339), existing.ExpiresAt.Format(time.RFC3339)))
			}
			return tx.Model(&models.IntegrationCredential{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"access_token":  cred.AccessToken,
					"refresh_token": cred.RefreshToken,
					"expires_at":    cred.ExpiresAt,
					"connected_at":  cred.ConnectedAt,
					"connected":     cred.Connected,
					"last_error":    cred.LastError,
				}).Error
		})
	})
	if err != nil {
		log.Printf("⚠️ Credential write failed for %s/%s: %v", cred.UserID, cred.Provider, err)
		return &StoreError{Op: "put", Err: err}
	}
	return nil
}

// MarkDisconnected flips the record to disconnected and records the reason.
// The record is kept, never deleted; deletion is a user-initiated external action.
func (s *CredentialStore) MarkDisconnected(ctx context.Context, userID, provider, reason string) error {
	err := retry.Do(ctx, s.policy, func() error {
		res := s.db.WithContext(ctx).Model(&models.IntegrationCredential{}).
			Where("user_id = ? AND provider = ?", userID, provider).
			Updates(map[string]interface{}{
				"connected":  false,
				"last_error": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return retry.Permanent(ErrNotFound)
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return &StoreError{Op: "disconnect", Err: err}
	}
	return nil
}

// AppendEvent journals a telemetry event through the same retry policy as
// credential writes.
func (s *CredentialStore) AppendEvent(ctx context.Context, name, distinctID string, properties map[string]interface{}) error {
	props, err := json.Marshal(properties)
	if err != nil {
		return &StoreError{Op: "event", Err: err}
	}
	event := models.AnalyticsEvent{
		ID:         uuid.New().String(),
		Name:       name,
		DistinctID: distinctID,
		Properties: string(props),
	}
	err = retry.Do(ctx, s.policy, func() error {
		return s.db.WithContext(ctx).Create(&event).Error
	})
	if err != nil {
		return &StoreError{Op: "event", Err: err}
	}
	return nil
}
