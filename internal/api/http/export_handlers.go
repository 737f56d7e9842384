package apihttp

import (
	"net/http"
	"time"

	"gridpulse/internal/analytics/application"
	analytics "gridpulse/internal/analytics/domain"
	"gridpulse/internal/exports"
	"gridpulse/internal/forecast"
	"gridpulse/internal/observability/metrics"
	timeseries "gridpulse/internal/timeseries/domain"
)

// ExportSeriesXLSXHandler serves aggregated series as an XLSX download.
type ExportSeriesXLSXHandler struct {
	engine *application.Engine
}

// NewExportSeriesXLSXHandler constructs an ExportSeriesXLSXHandler.
func NewExportSeriesXLSXHandler(engine *application.Engine) *ExportSeriesXLSXHandler {
	return &ExportSeriesXLSXHandler{engine: engine}
}

// ServeHTTP handles GET /api/v1/exports/series.xlsx.
func (h *ExportSeriesXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	started := time.Now()

	query := r.URL.Query()
	entity, err := timeseries.ParseEntityType(query.Get("entity"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, end, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := application.Request{
		Entity:       entity,
		Zones:        query["zone"],
		Regions:      query["region"],
		InterfaceIDs: query["interface_id"],
		ISORTO:       query.Get("iso_rto"),
		FuelTypes:    query["fuel_type"],
		Metric:       query.Get("metric"),
		Range:        timeseries.TimeRange{Start: start, End: end},
		Interval:     analytics.Interval(query.Get("interval")),
		Func:         analytics.Func(query.Get("agg_func")),
	}
	series, err := h.engine.Aggregate(r.Context(), req)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(started))
		writeQueryError(w, err)
		return
	}

	interval := req.Interval
	if interval == "" {
		interval = analytics.IntervalHourly
	}
	fn := req.Func
	if fn == "" {
		fn = analytics.DefaultFunc(entity)
	}
	payload, err := exports.BuildSeriesXLSX(string(entity), interval, fn, series)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(started))
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(started))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="series.xlsx"`)
	_, _ = w.Write(payload)
}

// ExportForecastReportHandler serves the forecast accuracy report PDF.
type ExportForecastReportHandler struct {
	reconciler *forecast.Reconciler
}

// NewExportForecastReportHandler constructs an ExportForecastReportHandler.
func NewExportForecastReportHandler(reconciler *forecast.Reconciler) *ExportForecastReportHandler {
	return &ExportForecastReportHandler{reconciler: reconciler}
}

// ServeHTTP handles GET /api/v1/exports/forecast-report.pdf.
func (h *ExportForecastReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reconciler == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	started := time.Now()

	region := r.URL.Query().Get("region")
	if region == "" {
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
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(started))
		writeQueryError(w, err)
		return
	}
	payload, err := exports.BuildForecastReportPDF(comparison)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(started))
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(started))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="forecast-report.pdf"`)
	_, _ = w.Write(payload)
}
