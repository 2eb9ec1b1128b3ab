// Package metrics provides Prometheus metrics for the cycling similarity service and batch jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service, the trainer and the scraper.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// Similarity queries
	similarityQueries    *prometheus.CounterVec
	similarityLatency    prometheus.Histogram
	similarityResultSize prometheus.Histogram

	// Snapshot lifecycle
	snapshotReloads        *prometheus.CounterVec
	snapshotLastLoadedUnix prometheus.Gauge
	snapshotRiders         prometheus.Gauge
	snapshotEvents         prometheus.Gauge

	// Training
	trainingRuns         *prometheus.CounterVec
	trainingDuration     prometheus.Histogram
	trainingEpochs       prometheus.Counter
	trainingEpochLoss    prometheus.Gauge
	trainingLearningRate prometheus.Gauge
	datasetRiders        prometheus.Gauge
	datasetEvents        prometheus.Gauge
	datasetTriples       prometheus.Gauge

	// Acquisition
	acquisitionFetches *prometheus.CounterVec
	acquisitionGaps    *prometheus.CounterVec
	acquisitionLatency *prometheus.HistogramVec

	// Storage
	storageOps     *prometheus.CounterVec
	storageLatency *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // package-level recorders write to a single manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served by /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cycsim",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
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
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.similarityQueries = auto.NewCounterVec(
		m.counterOpts("similarity_queries_total", "Similarity queries by outcome"),
		[]string{"outcome"},
	)
	m.similarityLatency = auto.NewHistogram(
		m.histogramOpts("similarity_latency_milliseconds", "Latency of a most-similar query in milliseconds", m.histogramBuckets),
	)
	m.similarityResultSize = auto.NewHistogram(
		m.histogramOpts("similarity_result_size", "Number of subjects returned per query", []float64{0, 1, 2, 5, 10, 20, 50, 100}),
	)

	m.snapshotReloads = auto.NewCounterVec(
		m.counterOpts("snapshot_reloads_total", "Snapshot load attempts by outcome"),
		[]string{"outcome"},
	)
	m.snapshotLastLoadedUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_loaded_unix", "Unix time of the last published snapshot"))
	m.snapshotRiders = auto.NewGauge(m.gaugeOpts("snapshot_riders", "Riders embedded in the published snapshot"))
	m.snapshotEvents = auto.NewGauge(m.gaugeOpts("snapshot_events", "Race events embedded in the published snapshot"))

	m.trainingRuns = auto.NewCounterVec(
		m.counterOpts("training_runs_total", "Training runs by outcome"),
		[]string{"outcome"},
	)
	m.trainingDuration = auto.NewHistogram(
		m.histogramOpts("training_duration_seconds", "Wall time of a training run", []float64{1, 5, 30, 60, 300, 600, 1800, 3600}),
	)
	m.trainingEpochs = auto.NewCounter(m.counterOpts("training_epochs_total", "Completed training epochs"))
	m.trainingEpochLoss = auto.NewGauge(m.gaugeOpts("training_epoch_loss", "Mean squared error of the last completed epoch"))
	m.trainingLearningRate = auto.NewGauge(m.gaugeOpts("training_learning_rate", "Learning rate at the end of the last epoch"))
	m.datasetRiders = auto.NewGauge(m.gaugeOpts("dataset_riders", "Riders in the training dataset"))
	m.datasetEvents = auto.NewGauge(m.gaugeOpts("dataset_events", "Race events in the training dataset"))
	m.datasetTriples = auto.NewGauge(m.gaugeOpts("dataset_triples", "Observed (rider, event, score) triples"))

	m.acquisitionFetches = auto.NewCounterVec(
		m.counterOpts("acquisition_fetches_total", "Upstream fetches by kind and outcome"),
		[]string{"kind", "outcome"},
	)
	m.acquisitionGaps = auto.NewCounterVec(
		m.counterOpts("acquisition_gaps_total", "Records skipped because they could not be fetched or parsed"),
		[]string{"kind"},
	)
	m.acquisitionLatency = auto.NewHistogramVec(
		m.histogramOpts("acquisition_latency_milliseconds", "Upstream fetch latency in milliseconds", []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000}),
		[]string{"kind"},
	)

	m.storageOps = auto.NewCounterVec(
		m.counterOpts("storage_operations_total", "Persistence operations by backend, operation and outcome"),
		[]string{"backend", "op", "outcome"},
	)
	m.storageLatency = auto.NewHistogramVec(
		m.histogramOpts("storage_latency_milliseconds", "Persistence operation latency in milliseconds", m.histogramBuckets),
		[]string{"backend", "op"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Errors

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

// Similarity

// RecordSimilarityQuery records the outcome, latency and size of a most-similar query.
func RecordSimilarityQuery(outcome string, latencyMs float64, results int) {
	globalManager.similarityQueries.WithLabelValues(outcome).Inc()
	globalManager.similarityLatency.Observe(latencyMs)
	globalManager.similarityResultSize.Observe(float64(results))
}

// Snapshot

// RecordSnapshotReload counts a snapshot load attempt.
func RecordSnapshotReload(outcome string) {
	globalManager.snapshotReloads.WithLabelValues(outcome).Inc()
}

// UpdateSnapshotPublished records the shape and load time of a freshly published snapshot.
func UpdateSnapshotPublished(riders, events int, loadedUnix float64) {
	globalManager.snapshotRiders.Set(float64(riders))
	globalManager.snapshotEvents.Set(float64(events))
	globalManager.snapshotLastLoadedUnix.Set(loadedUnix)
}

// Training

// RecordTrainingRun counts a finished training run and its duration.
func RecordTrainingRun(outcome string, seconds float64) {
	globalManager.trainingRuns.WithLabelValues(outcome).Inc()
	globalManager.trainingDuration.Observe(seconds)
}

// RecordTrainingEpoch records the loss and learning rate of a completed epoch.
func RecordTrainingEpoch(loss, learningRate float64) {
	globalManager.trainingEpochs.Inc()
	globalManager.trainingEpochLoss.Set(loss)
	globalManager.trainingLearningRate.Set(learningRate)
}

// UpdateDatasetShape records the size of the training dataset.
func UpdateDatasetShape(riders, events, triples int) {
	globalManager.datasetRiders.Set(float64(riders))
	globalManager.datasetEvents.Set(float64(events))
	globalManager.datasetTriples.Set(float64(triples))
}

// Acquisition

// RecordAcquisitionFetch records an upstream fetch.
func RecordAcquisitionFetch(kind, outcome string, latencyMs float64) {
	globalManager.acquisitionFetches.WithLabelValues(kind, outcome).Inc()
	globalManager.acquisitionLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordAcquisitionGap counts a skipped record.
func RecordAcquisitionGap(kind string) {
	globalManager.acquisitionGaps.WithLabelValues(kind).Inc()
}

// Storage

// RecordStorageOp records a persistence operation.
func RecordStorageOp(backend, op, outcome string, latencyMs float64) {
	globalManager.storageOps.WithLabelValues(backend, op, outcome).Inc()
	globalManager.storageLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// System

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
