package handlers

import (
	"net/http"

	"github.com/finboardhq/finboard/internal/api/middleware"
	"github.com/finboardhq/finboard/internal/providers"
	"github.com/finboardhq/finboard/internal/upstream"
)

// PlaidBalancesHandler returns current account balances from Plaid.
// GET /api/plaid/balances
func PlaidBalancesHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		res, err := client.CallProvider(r.Context(), userID, providers.Plaid, upstream.Request{
			Method: http.MethodPost,
			Path:   "/accounts/balance/get",
			Body:   map[string]interface{}{},
		})
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		WriteRawData(w, http.StatusOK, res.Body)
	}
}

// PlaidTransactionsHandler returns transactions for a date range.
// GET /api/plaid/transactions?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
//
// The dates are forwarded to Plaid exactly as received.
func PlaidTransactionsHandler(client *upstream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		startDate := r.URL.Query().Get("start_date")
		endDate := r.URL.Query().Get("end_date")
		if startDate == "" || endDate == "" {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "start_date and end_date are required")
			return
		}

		res, err := client.CallProvider(r.Context(), userID, providers.Plaid, upstream.Request{
			Method: http.MethodPost,
			Path:   "/transactions/get",
			Body: map[string]interface{}{
				"start_date": startDate,
				"end_date":   endDate,
			},
		})
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		WriteRawData(w, http.StatusOK, res.Body)
	}
}
