package handlers

import (
	"net/http"

	"github.com/finboardhq/finboard/internal/version"
)

// HealthHandler reports liveness and build info.
// GET /healthz
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteData(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Version,
			"commit":  version.Commit,
		})
	}
}
