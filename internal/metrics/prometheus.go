package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the fight-record sync service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mma_api_calls_total",
			Help: "Total number of FightData API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mma_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EventlogPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mma_eventlog_pages_fetched_total",
			Help: "Total number of eventlog pages fetched from the API",
		},
	)

	// Rate limiting / circuit breaker
	RateLimitThrottlesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mma_rate_limit_throttles_total",
			Help: "Times the client lowered its request rate after an upstream 429",
		},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_circuit_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Database metrics
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mma_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mma_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mma_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Sync metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mma_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"mode", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mma_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	MissingFightsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mma_missing_fights_detected_total",
			Help: "Fight keys found remotely but absent locally during diffs",
		},
	)

	BackfillEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mma_backfill_events_total",
			Help: "Events processed by the backfill executor",
		},
		[]string{"result"},
	)

	// Ingestion totals
	FightersIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_fighters_ingested_total",
			Help: "Total number of fighters in database",
		},
	)

	EventsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_events_ingested_total",
			Help: "Total number of events in database",
		},
	)

	FightsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_fights_ingested_total",
			Help: "Total number of fights in database",
		},
	)

	OddsRecordsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_odds_records_total",
			Help: "Total number of odds records in database",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mma_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mma_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mma_last_successful_sync_timestamp",
			Help: "Timestamp of the last successful sync run per mode",
		},
		[]string{"mode"},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordEventlogPage records one fetched eventlog page
func RecordEventlogPage() {
	EventlogPagesFetched.Inc()
}

// RecordThrottle records a rate-limit driven slowdown
func RecordThrottle() {
	RateLimitThrottlesTotal.Inc()
}

// SetCircuitBreakerState records the breaker state as a gauge value
func SetCircuitBreakerState(state float64) {
	CircuitBreakerState.Set(state)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSync records a sync run
func RecordSync(mode, status string, duration float64) {
	SyncRunsTotal.WithLabelValues(mode, status).Inc()
	SyncDuration.WithLabelValues(mode).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.WithLabelValues(mode).SetToCurrentTime()
	}
}

// RecordMissingFights records fight keys a diff found absent locally
func RecordMissingFights(count int) {
	MissingFightsDetected.Add(float64(count))
}

// RecordBackfillEvent records one backfill executor outcome
func RecordBackfillEvent(result string) {
	BackfillEventsTotal.WithLabelValues(result).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// UpdateIngestionStats updates ingestion statistics
func UpdateIngestionStats(fighters, events, fights, odds int64) {
	FightersIngested.Set(float64(fighters))
	EventsIngested.Set(float64(events))
	FightsIngested.Set(float64(fights))
	OddsRecordsIngested.Set(float64(odds))
}
