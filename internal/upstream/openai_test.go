package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		data, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		json.Unmarshal(data, &payload)
		if payload["model"] != "gpt-4o-mini" {
			t.Errorf("unexpected model %v", payload["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Cash flow looks healthy."}}]}`))
	}))
	defer srv.Close()

	c := NewInsightsClient("sk-test", srv.URL, "gpt-4o-mini", 5*time.Second)
	got, err := c.Summarize(context.Background(), "Summarize: revenue 10k, expenses 7k")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "Cash flow looks healthy." {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummarize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewInsightsClient("sk-test", srv.URL, "gpt-4o-mini", 5*time.Second)
	_, err := c.Summarize(context.Background(), "prompt")

	var apiErr *ProviderAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ProviderAPIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", apiErr.Status)
	}
}

func TestInsightsClient_Enabled(t *testing.T) {
	if NewInsightsClient("", "http://x", "m", time.Second).Enabled() {
		t.Error("expected disabled without API key")
	}
	if !NewInsightsClient("sk", "http://x", "m", time.Second).Enabled() {
		t.Error("expected enabled with API key")
	}
}
