package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/finboardhq/finboard/internal/providers"
)

// ExchangePlaidPublicToken swaps a Plaid Link public token for the item's
// long-lived access token. This runs during linking, before any credential
// exists, so it bypasses the token manager.
func (c *Client) ExchangePlaidPublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	p, err := c.registry.Get(providers.Plaid)
	if err != nil {
		return "", "", err
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":    p.ClientID,
		"secret":       p.ClientSecret,
		"public_token": publicToken,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.DataBaseURL+"/item/public_token/exchange", bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("build exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= 400 {
		return "", "", &ProviderAPIError{Provider: providers.Plaid, Status: resp.StatusCode, Body: body}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", fmt.Errorf("decode exchange response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", "", fmt.Errorf("exchange response missing access_token")
	}
	return parsed.AccessToken, parsed.ItemID, nil
}
