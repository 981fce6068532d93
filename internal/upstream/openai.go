package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InsightsClient calls the OpenAI chat-completions API to produce short
// natural-language summaries of the caller's financial figures. This is
// API-key auth, not a stored per-user credential, so it sits outside the
// token manager.
type InsightsClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewInsightsClient creates the OpenAI-backed insights client.
func NewInsightsClient(apiKey, baseURL, model string, timeout time.Duration) *InsightsClient {
	return &InsightsClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *InsightsClient) Enabled() bool {
	return c.apiKey != ""
}

// Summarize sends the prompt and returns the first completion choice.
func (c *InsightsClient) Summarize(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a financial assistant for a small business. Be concise and concrete."},
			{"role": "user", "content": prompt},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal insights request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build insights request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= 400 {
		return "", &ProviderAPIError{Provider: "openai", Status: resp.StatusCode, Body: body}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode insights response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("insights response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
