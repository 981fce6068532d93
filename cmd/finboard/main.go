package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/finboardhq/finboard/internal/api"
	"github.com/finboardhq/finboard/internal/auth/identity"
	"github.com/finboardhq/finboard/internal/auth/token"
	"github.com/finboardhq/finboard/internal/config"
	"github.com/finboardhq/finboard/internal/db"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/retry"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/telemetry"
	"github.com/finboardhq/finboard/internal/upstream"
	"github.com/finboardhq/finboard/internal/version"
)

func main() {
	configPath := flag.String("config", "finboard.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if missing := cfg.Validate(); len(missing) > 0 {
		for _, m := range missing {
			log.Printf("❌ Missing required config: %s", m)
		}
		log.Fatalf("Configuration incomplete: %d required values missing", len(missing))
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	writePolicy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
	}
	credStore := store.NewCredentialStore(database, writePolicy)

	var tlmt telemetry.Telemetry
	if cfg.Telemetry.PostHogAPIKey != "" {
		tlmt, err = telemetry.NewPostHog(cfg.Telemetry.PostHogAPIKey, cfg.Telemetry.Endpoint)
		if err != nil {
			log.Fatalf("Failed to initialize telemetry: %v", err)
		}
	} else {
		log.Println("📭 No PostHog key configured, telemetry disabled")
		tlmt = telemetry.NewNoop()
	}
	tlmt = telemetry.WithJournal(tlmt, credStore)
	defer tlmt.Close()

	registry := providers.FromConfig(cfg)
	tokenManager := token.NewManager(credStore, registry, tlmt, cfg.Skew(), cfg.CallTimeout())
	upstreamClient := upstream.NewClient(tokenManager, registry, cfg.CallTimeout())
	insights := upstream.NewInsightsClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.CallTimeout())
	verifier := identity.NewHTTPVerifier(cfg.Identity.BaseURL, cfg.Identity.Audience, cfg.CallTimeout())

	router := api.NewRouter(api.Deps{
		Verifier:  verifier,
		Registry:  registry,
		Store:     credStore,
		Upstream:  upstreamClient,
		Insights:  insights,
		Telemetry: tlmt,
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("🚀 finboard %s starting on http://%s", version.Version, addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
