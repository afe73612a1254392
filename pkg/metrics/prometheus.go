// Package metrics provides Prometheus metrics for the maisearch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Search
	searchRequests *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
	searchResults  prometheus.Histogram
	searchEmpty    prometheus.Counter
	searchPhases   *prometheus.CounterVec

	// Catalog
	catalogSongs           prometheus.Gauge
	catalogRebuilds        *prometheus.CounterVec
	catalogRebuildDuration prometheus.Histogram
	catalogSkipped         *prometheus.CounterVec
	catalogLookupLatency   *prometheus.HistogramVec
	catalogLastRebuildUnix prometheus.Gauge

	// Feed
	feedFetches      *prometheus.CounterVec
	feedFetchLatency prometheus.Histogram

	// Rating
	ratingComputations prometheus.Counter
	bestBoardsBuilt    prometheus.Counter
	bestRejected       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors on the
// configured registry. Registering two managers with the same names on one
// registry panics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "maisearch",
		subsystem:        "",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.searchRequests = auto.NewCounterVec(
		m.counterOpts("search_requests_total", "Search requests by kind (id, title)"),
		[]string{"kind"},
	)
	m.searchLatency = auto.NewHistogramVec(
		m.histogramOpts("search_latency_milliseconds", "Search latency in milliseconds", m.histogramBuckets),
		[]string{"kind"},
	)
	m.searchResults = auto.NewHistogram(
		m.histogramOpts("search_results", "Number of songs returned per title search", []float64{0, 1, 2, 3, 5, 10, 25, 50}),
	)
	m.searchEmpty = auto.NewCounter(
		m.counterOpts("search_empty_total", "Title searches that matched nothing"),
	)
	m.searchPhases = auto.NewCounterVec(
		m.counterOpts("search_phase_total", "Search phases that produced the final candidates"),
		[]string{"phase"},
	)

	m.catalogSongs = auto.NewGauge(
		m.gaugeOpts("catalog_songs", "Songs currently served by the catalog"),
	)
	m.catalogRebuilds = auto.NewCounterVec(
		m.counterOpts("catalog_rebuilds_total", "Catalog rebuilds by result"),
		[]string{"result"},
	)
	m.catalogRebuildDuration = auto.NewHistogram(
		m.histogramOpts("catalog_rebuild_duration_milliseconds", "Catalog rebuild duration in milliseconds", m.histogramBuckets),
	)
	m.catalogSkipped = auto.NewCounterVec(
		m.counterOpts("catalog_skipped_songs_total", "Songs skipped while building the catalog"),
		[]string{"reason"},
	)
	m.catalogLookupLatency = auto.NewHistogramVec(
		m.histogramOpts("catalog_lookup_latency_milliseconds", "Catalog lookup latency in milliseconds", m.histogramBuckets),
		[]string{"op"},
	)
	m.catalogLastRebuildUnix = auto.NewGauge(
		m.gaugeOpts("catalog_last_rebuild_unixtime", "Unix time of the last successful catalog rebuild"),
	)

	m.feedFetches = auto.NewCounterVec(
		m.counterOpts("feed_fetches_total", "Music data fetches by source (remote, cache, file) and result"),
		[]string{"source", "result"},
	)
	m.feedFetchLatency = auto.NewHistogram(
		m.histogramOpts("feed_fetch_latency_milliseconds", "Remote music data fetch latency in milliseconds", m.histogramBuckets),
	)

	m.ratingComputations = auto.NewCounter(
		m.counterOpts("rating_computations_total", "Single chart rating computations"),
	)
	m.bestBoardsBuilt = auto.NewCounter(
		m.counterOpts("best_boards_built_total", "Best boards assembled"),
	)
	m.bestRejected = auto.NewCounterVec(
		m.counterOpts("best_records_rejected_total", "Records rejected by a full best list"),
		[]string{"list"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that ended in an error", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes in use"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Current number of goroutines"),
	)
}

// Search Metrics Functions.

// RecordSearch records one search request of the given kind.
func RecordSearch(kind string, latencyMs float64) {
	globalManager.searchRequests.WithLabelValues(kind).Inc()
	globalManager.searchLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordSearchResults records the size of a title search result.
func RecordSearchResults(n int) {
	globalManager.searchResults.Observe(float64(n))
	if n == 0 {
		globalManager.searchEmpty.Inc()
	}
}

// RecordSearchPhase records which phase produced the final candidate set.
func RecordSearchPhase(phase string) {
	globalManager.searchPhases.WithLabelValues(phase).Inc()
}

// Catalog Metrics Functions.

// UpdateCatalogSongs sets the number of songs served by the catalog.
func UpdateCatalogSongs(count int) {
	globalManager.catalogSongs.Set(float64(count))
}

// RecordCatalogRebuild records a rebuild attempt. result is "ok" or "error".
func RecordCatalogRebuild(result string, durationMs float64) {
	globalManager.catalogRebuilds.WithLabelValues(result).Inc()
	globalManager.catalogRebuildDuration.Observe(durationMs)
}

// UpdateCatalogLastRebuildUnix sets the time of the last successful rebuild.
func UpdateCatalogLastRebuildUnix(ts float64) {
	globalManager.catalogLastRebuildUnix.Set(ts)
}

// RecordCatalogSkipped counts songs dropped during a rebuild.
func RecordCatalogSkipped(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.catalogSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordCatalogLookupLatency records the latency of a store lookup.
func RecordCatalogLookupLatency(op string, latencyMs float64) {
	globalManager.catalogLookupLatency.WithLabelValues(op).Observe(latencyMs)
}

// Feed Metrics Functions.

// RecordFeedFetch records a music data load from source with result.
func RecordFeedFetch(source, result string) {
	globalManager.feedFetches.WithLabelValues(source, result).Inc()
}

// RecordFeedFetchLatency records the latency of a remote fetch.
func RecordFeedFetchLatency(latencyMs float64) {
	globalManager.feedFetchLatency.Observe(latencyMs)
}

// Rating Metrics Functions.

// RecordRatingComputation increments the rating computation counter.
func RecordRatingComputation() {
	globalManager.ratingComputations.Inc()
}

// RecordBestBoardBuilt increments the board counter.
func RecordBestBoardBuilt() {
	globalManager.bestBoardsBuilt.Inc()
}

// RecordBestRejected counts records a full list refused.
func RecordBestRejected(list string, n int) {
	if n <= 0 {
		return
	}
	globalManager.bestRejected.WithLabelValues(list).Add(float64(n))
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
