package apihttp

import (
	"errors"
	"net/http"

	ingest "gridpulse/internal/ingest/application"
	timeseries "gridpulse/internal/timeseries/domain"
)

// UpdateHandler triggers on-demand ingestion runs.
type UpdateHandler struct {
	orchestrator *ingest.Orchestrator
}

// NewUpdateHandler constructs an UpdateHandler.
func NewUpdateHandler(orchestrator *ingest.Orchestrator) *UpdateHandler {
	return &UpdateHandler{orchestrator: orchestrator}
}

type updateResult struct {
	Entity   string `json:"entity_type"`
	Status   string `json:"status"`
	Fetched  int    `json:"fetched"`
	Upserted int    `json:"upserted"`
	Rejected int    `json:"rejected"`
	Joined   bool   `json:"joined,omitempty"`
	Error    string `json:"error,omitempty"`
}

type updateResponse struct {
	Results []updateResult `json:"results"`
	Failed  bool           `json:"failed"`
}

// ServeHTTP handles POST /api/v1/update. It blocks until the triggered
// batch completes or fails and reports per-entity-type counts.
func (h *UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.orchestrator == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	if value := r.URL.Query().Get("entity_type"); value != "" {
		entity, err := timeseries.ParseEntityType(value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := h.orchestrator.Run(r.Context(), entity)
		response := updateResponse{Results: []updateResult{runResultJSON(result, err)}, Failed: err != nil}
		writeJSON(w, response)
		return
	}

	report := h.orchestrator.RunAll(r.Context())
	response := updateResponse{Failed: report.Failed()}
	for _, result := range report.Results {
		response.Results = append(response.Results, runResultJSON(result, nil))
	}
	for entity, err := range report.Errors {
		response.Results = append(response.Results, updateResult{
			Entity: string(entity),
			Status: "error",
			Error:  err.Error(),
		})
	}
	writeJSON(w, response)
}

func runResultJSON(result ingest.RunResult, err error) updateResult {
	out := updateResult{
		Entity:   string(result.Entity),
		Status:   "ok",
		Fetched:  result.Fetched,
		Upserted: result.Upserted,
		Rejected: result.Rejected,
		Joined:   result.Joined,
	}
	if err != nil {
		out.Status = "error"
		out.Error = err.Error()
		if errors.Is(err, ingest.ErrNoAdapter) {
			out.Status = "unknown_entity"
		}
	}
	return out
}
