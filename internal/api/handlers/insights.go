package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/finboardhq/finboard/internal/upstream"
)

// InsightsHandler produces an AI-assisted summary of caller-supplied figures.
// POST /api/insights {"question": "...", "figures": {"revenue": 10000, ...}}
func InsightsHandler(insights *upstream.InsightsClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !insights.Enabled() {
			WriteError(w, http.StatusServiceUnavailable, CodeBadRequest, "insights are not configured")
			return
		}

		var body struct {
			Question string             `json:"question"`
			Figures  map[string]float64 `json:"figures"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Question == "" {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "question required")
			return
		}

		var prompt strings.Builder
		prompt.WriteString(body.Question)
		if len(body.Figures) > 0 {
			prompt.WriteString("\n\nFigures:\n")
			for name, value := range body.Figures {
				fmt.Fprintf(&prompt, "- %s: %.2f\n", name, value)
			}
		}

		summary, err := insights.Summarize(r.Context(), prompt.String())
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}

		WriteData(w, http.StatusOK, map[string]string{"insight": summary})
	}
}
