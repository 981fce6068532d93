// Package upstream issues authenticated calls to the financial providers'
// data APIs, keeping tokens valid via the token manager and mapping provider
// failures into a small, explicit error set.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finboardhq/finboard/internal/auth/token"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/util"
)

// ErrUnreachable: network-level failure, no provider response at all.
var ErrUnreachable = errors.New("provider unreachable")

// ProviderAPIError carries a provider's HTTP error response verbatim. The
// status and body are propagated for diagnostics, never swallowed.
type ProviderAPIError struct {
	Provider string
	Status   int
	Body     []byte
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Status, util.TruncateBytes(e.Body))
}

// Request describes one provider data call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-marshaled when non-nil. For Plaid, map bodies get the
	// client credentials and item access token injected.
	Body    map[string]interface{}
	Headers map[string]string
}

// Result is a successful provider response.
type Result struct {
	Status int
	Body   []byte
}

// Client performs authenticated provider calls.
type Client struct {
	tokens     *token.Manager
	registry   *providers.Registry
	httpClient *http.Client
}

// NewClient creates an upstream client. callTimeout bounds each data call.
func NewClient(tokens *token.Manager, registry *providers.Registry, callTimeout time.Duration) *Client {
	return &Client{
		tokens:     tokens,
		registry:   registry,
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// CallProvider ensures a valid token for (userID, provider) and issues the
// data call. Token errors pass through unchanged so handlers can map them.
func (c *Client) CallProvider(ctx context.Context, userID, providerName string, req Request) (*Result, error) {
	cred, err := c.tokens.EnsureValidToken(ctx, userID, providerName)
	if err != nil {
		return nil, err
	}

	p, err := c.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	callURL := strings.TrimRight(p.DataBaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		callURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload := req.Body
		if p.Grant == providers.GrantStatic {
			// Plaid authenticates with body-level credentials.
			payload = withPlaidAuth(payload, p, cred.AccessToken)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, callURL, body)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if p.Grant != providers.GrantStatic {
		httpReq.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("⚠️ %s data call failed: %v", providerName, err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &ProviderAPIError{Provider: providerName, Status: resp.StatusCode, Body: respBody}
	}

	return &Result{Status: resp.StatusCode, Body: respBody}, nil
}

// withPlaidAuth copies the payload and adds Plaid's body-level auth fields.
func withPlaidAuth(payload map[string]interface{}, p *providers.Provider, accessToken string) map[string]interface{} {
	out := make(map[string]interface{}, len(payload)+3)
	for k, v := range payload {
		out[k] = v
	}
	if _, ok := out["client_id"]; !ok {
		out["client_id"] = p.ClientID
	}
	if _, ok := out["secret"]; !ok {
		out["secret"] = p.ClientSecret
	}
	if _, ok := out["access_token"]; !ok {
		out["access_token"] = accessToken
	}
	return out
}
