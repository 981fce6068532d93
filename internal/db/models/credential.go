package models

import "time"

// IntegrationCredential stores the OAuth token pair and connection state
// for one user/provider integration.
type IntegrationCredential struct {
	ID           string `gorm:"primaryKey"` // UUID
	UserID       string `gorm:"uniqueIndex:idx_user_provider"`
	Provider     string `gorm:"uniqueIndex:idx_user_provider"` // "xero", "paypal", "plaid"
	AccessToken  string
	RefreshToken string // empty for providers without refresh-token grants
	ExpiresAt    time.Time
	ConnectedAt  time.Time
	Connected    bool   `gorm:"default:true"`
	LastError    string // diagnostic detail from the last terminal refresh failure
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Usable reports whether the stored tokens may be handed to a caller.
// A disconnected record keeps its tokens for audit but they must never be used.
func (c *IntegrationCredential) Usable() bool {
	return c.Connected
}

// Expiring reports whether the access token is expired or expires within skew.
// Credentials with a zero ExpiresAt never expire (static-token providers).
func (c *IntegrationCredential) Expiring(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}
