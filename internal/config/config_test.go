package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9000"
identity:
  base_url: https://identity.example.com
callback_base_url: https://app.example.com
xero:
  client_id: xid
  client_secret: xsecret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Xero.TokenURL != "https://identity.xero.com/connect/token" {
		t.Errorf("expected default xero token url, got %s", cfg.Xero.TokenURL)
	}
	if cfg.Skew() != 5*time.Minute {
		t.Errorf("expected default 5m skew, got %v", cfg.Skew())
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected default 3 retry attempts, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
xero:
  client_id: from-file
`)
	t.Setenv("XERO_CLIENT_ID", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Xero.ClientID != "from-env" {
		t.Errorf("expected env override, got %s", cfg.Xero.ClientID)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing config file should fall back to env/defaults: %v", err)
	}
	if cfg.Database.Path != "finboard.db" {
		t.Errorf("expected default db path, got %s", cfg.Database.Path)
	}
}

func TestValidate_ReportsEveryMissingKey(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	missing := cfg.Validate()
	wantSubstrings := []string{
		"identity.base_url",
		"callback_base_url",
		"xero.client_id",
		"xero.client_secret",
		"paypal.client_id",
		"paypal.client_secret",
		"plaid.client_id",
		"plaid.client_secret",
	}
	for _, want := range wantSubstrings {
		found := false
		for _, m := range missing {
			if strings.Contains(m, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q in missing list %v", want, missing)
		}
	}
}

func TestValidate_CompleteConfigPasses(t *testing.T) {
	path := writeConfigFile(t, `
identity:
  base_url: https://identity.example.com
callback_base_url: https://app.example.com
xero: {client_id: a, client_secret: b}
paypal: {client_id: c, client_secret: d}
plaid: {client_id: e, client_secret: f}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if missing := cfg.Validate(); len(missing) != 0 {
		t.Fatalf("expected no missing keys, got %v", missing)
	}
}
