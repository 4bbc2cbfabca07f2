package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	TranslationSourceModel = "model"
	TranslationSourceCache = "cache"

	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medsql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsql_translations_total",
			Help: "Total number of natural-language translations by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	translationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medsql_translation_duration_seconds",
			Help:    "Latency of completion-backed translation calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
	guardRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medsql_guard_rejections_total",
			Help: "Total number of generated statements rejected by the read-only guard.",
		},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsql_query_executions_total",
			Help: "Total number of guarded query executions by outcome.",
		},
		[]string{"outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medsql_query_duration_seconds",
			Help:    "Latency of data-store query executions.",
			Buckets: prometheus.DefBuckets,
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medsql_query_rows_returned",
			Help:    "Row counts returned by successful query executions.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsql_cache_lookups_total",
			Help: "Total number of translation cache lookups by result.",
		},
		[]string{"result"},
	)
	recordsUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medsql_records_uploaded_total",
			Help: "Total number of medical records persisted by upload batches.",
		},
	)
	recordsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medsql_records_rejected_total",
			Help: "Total number of upload records rejected by validation or the store.",
		},
	)
	seedRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsql_seed_runs_total",
			Help: "Total number of seed runs by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		translationsTotal,
		translationDurationSeconds,
		guardRejectionsTotal,
		queryExecutionsTotal,
		queryDurationSeconds,
		queryRowsReturned,
		cacheLookupsTotal,
		recordsUploadedTotal,
		recordsRejectedTotal,
		seedRunsTotal,
	)
}

func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

func ObserveTranslation(source, outcome string, elapsed time.Duration) {
	translationsTotal.WithLabelValues(source, outcome).Inc()
	if source == TranslationSourceModel {
		translationDurationSeconds.Observe(elapsed.Seconds())
	}
}

func IncrementGuardRejection() {
	guardRejectionsTotal.Inc()
}

func ObserveQueryExecution(outcome string, rows int, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(outcome).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		queryRowsReturned.Observe(float64(rows))
	}
}

func ObserveCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

func ObserveUpload(uploaded, rejected int) {
	if uploaded > 0 {
		recordsUploadedTotal.Add(float64(uploaded))
	}
	if rejected > 0 {
		recordsRejectedTotal.Add(float64(rejected))
	}
}

func ObserveSeedRun(outcome string) {
	seedRunsTotal.WithLabelValues(outcome).Inc()
}
