// Package api assembles the HTTP router from explicitly constructed
// dependencies. Nothing here owns lifecycle; the process entry point does.
package api

import (
	"github.com/finboardhq/finboard/internal/api/handlers"
	"github.com/finboardhq/finboard/internal/api/middleware"
	"github.com/finboardhq/finboard/internal/auth/identity"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/telemetry"
	"github.com/finboardhq/finboard/internal/upstream"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps are the injected collaborators for the HTTP surface.
type Deps struct {
	Verifier  identity.Verifier
	Registry  *providers.Registry
	Store     *store.CredentialStore
	Upstream  *upstream.Client
	Insights  *upstream.InsightsClient
	Telemetry telemetry.Telemetry
}

// NewRouter builds the chi router.
func NewRouter(d Deps) chi.Router {
	connect := handlers.NewConnect(d.Registry, d.Store, d.Upstream, d.Telemetry)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.MethodNotAllowed(handlers.MethodNotAllowed())
	r.NotFound(handlers.NotFound())

	// Public routes
	r.Get("/healthz", handlers.HealthHandler())

	// Provider redirects land here; the caller is identified by the OAuth
	// state issued at login, not by a bearer token.
	r.Get("/connect/{provider}/callback", connect.Callback())

	// Authenticated API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.IdentityAuth(d.Verifier))

		r.Get("/connect/{provider}/login", connect.Login())
		r.Post("/connect/plaid/exchange", connect.PlaidExchange())

		r.Get("/integrations", handlers.IntegrationsHandler(d.Registry, d.Store))
		r.Post("/integrations/{provider}/disconnect", handlers.DisconnectHandler(d.Store, d.Telemetry))

		r.Get("/plaid/balances", handlers.PlaidBalancesHandler(d.Upstream))
		r.Get("/plaid/transactions", handlers.PlaidTransactionsHandler(d.Upstream))

		r.Get("/xero/invoices", handlers.XeroInvoicesHandler(d.Upstream))
		r.Get("/xero/reports/balance-sheet", handlers.XeroBalanceSheetHandler(d.Upstream))

		r.Get("/paypal/transactions", handlers.PayPalTransactionsHandler(d.Upstream))
		r.Get("/paypal/balances", handlers.PayPalBalancesHandler(d.Upstream))

		r.Post("/insights", handlers.InsightsHandler(d.Insights))
	})

	return r
}
