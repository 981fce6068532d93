// Package handlers implements the HTTP API. Every response uses the
// discriminated envelope: {"ok":true,"data":...} or {"ok":false,"error":{...}}.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/finboardhq/finboard/internal/auth/token"
	"github.com/finboardhq/finboard/internal/logging"
	"github.com/finboardhq/finboard/internal/store"
	"github.com/finboardhq/finboard/internal/upstream"
)

// Error codes surfaced to callers.
const (
	CodeUnauthorized        = "unauthorized"
	CodeMethodNotAllowed    = "method_not_allowed"
	CodeNotConnected        = "integration_not_connected"
	CodeProviderAPIError    = "provider_api_error"
	CodeProviderUnreachable = "provider_unreachable"
	CodeStoreError          = "store_error"
	CodeBadRequest          = "bad_request"
	CodeInternal            = "internal_error"
)

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Status  int             `json:"provider_status,omitempty"`
	Detail  json.RawMessage `json:"provider_body,omitempty"`
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "data": data})
}

// WriteRawData writes a success envelope around an already-encoded provider
// payload, passed through unchanged.
func WriteRawData(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"ok":true,"data":`))
	w.Write(raw)
	w.Write([]byte(`}`))
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorBody(w, status, errorBody{Code: code, Message: message})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": body})
}

// WriteDomainError maps the error taxonomy onto HTTP statuses. Provider API
// errors pass their status and body through verbatim; store and transport
// detail stays in the server log.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logging.GetRequestID(r.Context())

	var apiErr *upstream.ProviderAPIError
	var storeErr *store.StoreError

	switch {
	case errors.Is(err, token.ErrNotConnected):
		WriteError(w, http.StatusBadRequest, CodeNotConnected, "integration not connected")
	case errors.As(err, &apiErr):
		detail := json.RawMessage(apiErr.Body)
		if !json.Valid(detail) {
			detail = nil
		}
		writeErrorBody(w, apiErr.Status, errorBody{
			Code:    CodeProviderAPIError,
			Message: apiErr.Provider + " rejected the request",
			Status:  apiErr.Status,
			Detail:  detail,
		})
	case errors.Is(err, token.ErrUnavailable), errors.Is(err, upstream.ErrUnreachable):
		log.Printf("⚠️ [%s] Provider unreachable: %v", requestID, err)
		WriteError(w, http.StatusInternalServerError, CodeProviderUnreachable, "provider temporarily unreachable")
	case errors.As(err, &storeErr):
		log.Printf("⚠️ [%s] Store failure: %v", requestID, err)
		WriteError(w, http.StatusInternalServerError, CodeStoreError, "persistence failure")
	default:
		log.Printf("⚠️ [%s] Unhandled error: %v", requestID, err)
		WriteError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

// MethodNotAllowed is the router-level 405 handler.
func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method "+r.Method+" not allowed")
	}
}

// NotFound is the router-level 404 handler.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, CodeBadRequest, "no such endpoint")
	}
}
