package apihttp

import (
	"net/http"
	"time"

	"gridpulse/internal/forecast"
)

const dateLayout = "2006-01-02"

// ComparisonHandler serves forecast-vs-actual reconciliation.
type ComparisonHandler struct {
	reconciler *forecast.Reconciler
}

// NewComparisonHandler constructs a ComparisonHandler.
func NewComparisonHandler(reconciler *forecast.Reconciler) *ComparisonHandler {
	return &ComparisonHandler{reconciler: reconciler}
}

// ServeHTTP handles GET /api/v1/weather/comparison/{region}.
func (h *ComparisonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reconciler == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	region, ok := pathTail(r.URL.Path, "/api/v1/weather/comparison/")
	if !ok {
		http.Error(w, "region is required", http.StatusBadRequest)
		return
	}

	// A zero date lets the reconciler pick the region's current local day.
	var date time.Time
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := time.Parse(dateLayout, value)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	comparison, err := h.reconciler.Compare(r.Context(), region, date, r.URL.Query().Get("metric"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, comparison)
}
