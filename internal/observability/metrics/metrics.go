package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "gridpulse_"

	resultSuccess = "success"
	resultError   = "error"
	resultJoined  = "joined"
)

var (
	registerOnce sync.Once

	ingestRuns      *prometheus.CounterVec
	ingestLatency   *prometheus.HistogramVec
	upsertedRows    *prometheus.CounterVec
	rejectedRecords *prometheus.CounterVec
	cycleRetries    *prometheus.CounterVec

	watermarkAge *prometheus.GaugeVec

	queryTotal   *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_runs_total",
				Help: "Total ingestion runs by entity type and result",
			},
			[]string{"entity", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_run_latency_seconds",
				Help:    "Ingestion run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "result"},
		)
		upsertedRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_upserted_rows_total",
				Help: "Total rows upserted into the fact store by entity type",
			},
			[]string{"entity"},
		)
		rejectedRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rejected_records_total",
				Help: "Total records rejected during normalization by entity type and reason",
			},
			[]string{"entity", "reason"},
		)
		cycleRetries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_cycle_retries_total",
				Help: "Total upstream fetch retries by entity type",
			},
			[]string{"entity"},
		)

		watermarkAge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "ingest_watermark_age_seconds",
				Help: "Age of the per-entity ingestion watermark in seconds",
			},
			[]string{"entity"},
		)

		queryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregation_queries_total",
				Help: "Total aggregation queries by entity type and result",
			},
			[]string{"entity", "result"},
		)
		queryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregation_query_latency_seconds",
				Help:    "Aggregation query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "result"},
		)

		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "result_cache_lookups_total",
				Help: "Total aggregation result cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRuns,
			ingestLatency,
			upsertedRows,
			rejectedRecords,
			cycleRetries,
			watermarkAge,
			queryTotal,
			queryLatency,
			cacheLookups,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngestRun records ingestion run duration and result.
func ObserveIngestRun(entity, result string, duration time.Duration) {
	if entity == "" {
		entity = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestRuns != nil {
		ingestRuns.WithLabelValues(entity, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(entity, result).Observe(duration.Seconds())
	}
}

// AddUpsertedRows increments the upserted row counter by count.
func AddUpsertedRows(entity string, count int) {
	if count <= 0 {
		return
	}
	if entity == "" {
		entity = "unknown"
	}
	if upsertedRows != nil {
		upsertedRows.WithLabelValues(entity).Add(float64(count))
	}
}

// AddRejectedRecords increments the rejection counter by count.
func AddRejectedRecords(entity, reason string, count int) {
	if count <= 0 {
		return
	}
	if entity == "" {
		entity = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	if rejectedRecords != nil {
		rejectedRecords.WithLabelValues(entity, reason).Add(float64(count))
	}
}

// IncCycleRetry increments the fetch retry counter.
func IncCycleRetry(entity string) {
	if entity == "" {
		entity = "unknown"
	}
	if cycleRetries != nil {
		cycleRetries.WithLabelValues(entity).Inc()
	}
}

// SetWatermarkAge sets the per-entity watermark age gauge.
func SetWatermarkAge(entity string, age time.Duration) {
	if entity == "" {
		entity = "unknown"
	}
	if age < 0 {
		age = 0
	}
	if watermarkAge != nil {
		watermarkAge.WithLabelValues(entity).Set(age.Seconds())
	}
}

// ObserveQuery records aggregation query latency and result.
func ObserveQuery(entity, result string, duration time.Duration) {
	if entity == "" {
		entity = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if queryTotal != nil {
		queryTotal.WithLabelValues(entity, result).Inc()
	}
	if queryLatency != nil {
		queryLatency.WithLabelValues(entity, result).Observe(duration.Seconds())
	}
}

// IncCacheLookup increments the result cache lookup counter.
func IncCacheLookup(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if cacheLookups != nil {
		cacheLookups.WithLabelValues(outcome).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultJoined  = resultJoined

	CacheHit  = "hit"
	CacheMiss = "miss"
)
