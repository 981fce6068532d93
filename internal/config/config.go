// Package config loads service configuration from a YAML file with
// environment-variable overrides. Required values are checked once at startup
// so a misconfigured deployment fails loudly instead of mid-request.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the OAuth client registration for one integration.
type ProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`     // defaulted per provider
	AuthURL      string `yaml:"auth_url"`      // consent page, refresh-token providers only
	DataBaseURL  string `yaml:"data_base_url"` // defaulted per provider
}

// Config is the full service configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Identity struct {
		BaseURL  string `yaml:"base_url"` // hosted identity service verification endpoint base
		Audience string `yaml:"audience"`
	} `yaml:"identity"`

	// CallbackBaseURL is the externally reachable base for OAuth redirects,
	// e.g. "https://app.example.com".
	CallbackBaseURL string `yaml:"callback_base_url"`

	Xero   ProviderConfig `yaml:"xero"`
	PayPal ProviderConfig `yaml:"paypal"`
	Plaid  ProviderConfig `yaml:"plaid"`

	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	Telemetry struct {
		PostHogAPIKey string `yaml:"posthog_api_key"`
		Endpoint      string `yaml:"endpoint"`
	} `yaml:"telemetry"`

	Tokens struct {
		SkewSeconds        int `yaml:"skew_seconds"`         // expiry lookahead window
		CallTimeoutSeconds int `yaml:"call_timeout_seconds"` // per outbound call
	} `yaml:"tokens"`

	Retry struct {
		MaxAttempts int `yaml:"max_attempts"`
		BaseDelayMS int `yaml:"base_delay_ms"`
		MaxDelayMS  int `yaml:"max_delay_ms"`
	} `yaml:"retry"`
}

// Load reads the YAML file at path (if it exists), applies environment
// overrides, then fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyEnv() {
	envOverride(&c.Server.Host, "FINBOARD_HOST")
	envOverride(&c.Server.Port, "FINBOARD_PORT")
	envOverride(&c.Database.Path, "FINBOARD_DB_PATH")
	envOverride(&c.Identity.BaseURL, "FINBOARD_IDENTITY_BASE_URL")
	envOverride(&c.Identity.Audience, "FINBOARD_IDENTITY_AUDIENCE")
	envOverride(&c.CallbackBaseURL, "FINBOARD_CALLBACK_BASE_URL")

	envOverride(&c.Xero.ClientID, "XERO_CLIENT_ID")
	envOverride(&c.Xero.ClientSecret, "XERO_CLIENT_SECRET")
	envOverride(&c.PayPal.ClientID, "PAYPAL_CLIENT_ID")
	envOverride(&c.PayPal.ClientSecret, "PAYPAL_CLIENT_SECRET")
	envOverride(&c.Plaid.ClientID, "PLAID_CLIENT_ID")
	envOverride(&c.Plaid.ClientSecret, "PLAID_SECRET")

	envOverride(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	envOverride(&c.Telemetry.PostHogAPIKey, "POSTHOG_API_KEY")
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "finboard.db"
	}

	if c.Xero.TokenURL == "" {
		c.Xero.TokenURL = "https://identity.xero.com/connect/token"
	}
	if c.Xero.AuthURL == "" {
		c.Xero.AuthURL = "https://login.xero.com/identity/connect/authorize"
	}
	if c.Xero.DataBaseURL == "" {
		c.Xero.DataBaseURL = "https://api.xero.com"
	}

	if c.PayPal.TokenURL == "" {
		c.PayPal.TokenURL = "https://api-m.paypal.com/v1/oauth2/token"
	}
	if c.PayPal.DataBaseURL == "" {
		c.PayPal.DataBaseURL = "https://api-m.paypal.com"
	}

	if c.Plaid.DataBaseURL == "" {
		c.Plaid.DataBaseURL = "https://production.plaid.com"
	}

	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "https://app.posthog.com"
	}

	if c.Tokens.SkewSeconds == 0 {
		c.Tokens.SkewSeconds = 300
	}
	if c.Tokens.CallTimeoutSeconds == 0 {
		c.Tokens.CallTimeoutSeconds = 15
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelayMS == 0 {
		c.Retry.BaseDelayMS = 200
	}
	if c.Retry.MaxDelayMS == 0 {
		c.Retry.MaxDelayMS = 2000
	}
}

// Validate returns every missing required value, so the startup log shows the
// complete list rather than failing one key at a time.
func (c *Config) Validate() []string {
	var missing []string

	if c.Identity.BaseURL == "" {
		missing = append(missing, "identity.base_url (FINBOARD_IDENTITY_BASE_URL)")
	}
	if c.CallbackBaseURL == "" {
		missing = append(missing, "callback_base_url (FINBOARD_CALLBACK_BASE_URL)")
	}

	checkProvider := func(name string, p ProviderConfig) {
		if p.ClientID == "" {
			missing = append(missing, name+".client_id")
		}
		if p.ClientSecret == "" {
			missing = append(missing, name+".client_secret")
		}
	}
	checkProvider("xero", c.Xero)
	checkProvider("paypal", c.PayPal)
	checkProvider("plaid", c.Plaid)

	return missing
}

// Skew returns the token expiry lookahead window.
func (c *Config) Skew() time.Duration {
	return time.Duration(c.Tokens.SkewSeconds) * time.Second
}

// CallTimeout returns the per-outbound-call timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Tokens.CallTimeoutSeconds) * time.Second
}
