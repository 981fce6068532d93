package handlers

import (
	"net/http"
	"net/url"

	"github.com/finboardhq/finboard/internal/api/middleware"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/upstream"
)

// xeroHeaders forwards the tenant selector when the SPA supplies one.
func xeroHeaders(r *http.Request) map[string]string {
	headers := map[string]string{}
	if tenant := r.Header.Get("X-Xero-Tenant-Id"); tenant != "" {
		headers["Xero-Tenant-Id"] = tenant
	}
	return headers
}

// XeroInvoicesHandler returns the caller's Xero invoices.
// GET /api/xero/invoices — optional where/order/page query params pass through.
func XeroInvoicesHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		query := url.Values{}
		for _, param := range []string{"where", "order", "page"} {
			if v := r.URL.Query().Get(param); v != "" {
				query.Set(param, v)
			}
		}

		res, err := client.CallProvider(r.Context(), userID, providers.Xero, upstream.Request{
			Method:  http.MethodGet,
			Path:    "/api.xro/2.0/Invoices",
			Query:   query,
			Headers: xeroHeaders(r),
		})
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		WriteRawData(w, http.StatusOK, res.Body)
	}
}

// XeroBalanceSheetHandler returns the balance sheet report.
// GET /api/xero/reports/balance-sheet?date=YYYY-MM-DD
func XeroBalanceSheetHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		query := url.Values{}
		if date := r.URL.Query().Get("date"); date != "" {
			query.Set("date", date)
		}

		res, err := client.CallProvider(r.Context(), userID, providers.Xero, upstream.Request{
			Method:  http.MethodGet,
			Path:    "/api.xro/2.0/Reports/BalanceSheet",
			Query:   query,
			Headers: xeroHeaders(r),
		})
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		WriteRawData(w, http.StatusOK, res.Body)
	}
}
