package handlers

import (
	"net/http"
	"net/url"

	"github.com/finboardhq/finboard/internal/api/middleware"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/upstream"
)

// PayPalTransactionsHandler returns PayPal transactions for a date range.
// GET /api/paypal/transactions?start_date=...&end_date=...
//
// PayPal expects RFC3339 timestamps; the values are forwarded as received and
// any format complaint comes back as the provider's own error.
func PayPalTransactionsHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		startDate := r.URL.Query().Get("start_date")
		endDate := r.URL.Query().Get("end_date")
		if startDate == "" || endDate == "" {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "start_date and end_date are required")
			return
		}

		query := url.Values{}
		query.Set("start_date", startDate)
		query.Set("end_date", endDate)
		query.Set("fields", "all")

		res, err := client.CallProvider(r.Context(), userID, providers.PayPal, upstream.Request{
			Method: http.MethodGet,
			Path:   "/v1/reporting/transactions",
			Query:  query,
		})
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		WriteRawData(w, http.StatusOK, res.Body)
	}
}

// PayPalBalancesHandler returns PayPal wallet balances.
// GET /api/paypal/balances
func PayPalBalancesHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		res, err := client.CallProvider(r.Context(), userID, providers.PayPal, upstream.Request{
			Method: http.MethodGet,
			Path:   "/v1/reporting/balances",
		})
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		WriteRawData(w, http.StatusOK, res.Body)
	}
}
