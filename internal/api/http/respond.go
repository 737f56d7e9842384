package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	analytics "gridpulse/internal/analytics/domain"
	catalog "gridpulse/internal/catalog/domain"
	"gridpulse/internal/forecast"
)

const timeLayout = time.RFC3339

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// writeQueryError maps domain errors onto HTTP statuses.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrUnknownZone),
		errors.Is(err, catalog.ErrUnknownRegion),
		errors.Is(err, catalog.ErrUnknownInterface):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, forecast.ErrNoForecastData):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "query timed out", http.StatusGatewayTimeout)
	default:
		http.Error(w, "query error", http.StatusInternalServerError)
	}
}

// parseRangeQuery reads start_time/end_time, defaulting to the last day.
func parseRangeQuery(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.Add(-24 * time.Hour)
	end := now

	if value := r.URL.Query().Get("start_time"); value != "" {
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start_time must be RFC3339")
		}
		start = parsed.UTC()
	}
	if value := r.URL.Query().Get("end_time"); value != "" {
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end_time must be RFC3339")
		}
		end = parsed.UTC()
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end_time must be after start_time")
	}
	return start, end, nil
}

// pathTail extracts the path segment after prefix, rejecting nested paths.
func pathTail(path, prefix string) (string, bool) {
	tail := strings.TrimPrefix(path, prefix)
	if tail == "" || tail == path || strings.Contains(tail, "/") {
		return "", false
	}
	return tail, true
}

type seriesResponse struct {
	Entity   string             `json:"entity"`
	Interval string             `json:"interval"`
	AggFunc  string             `json:"agg_func"`
	Series   []analytics.Series `json:"series"`
}
