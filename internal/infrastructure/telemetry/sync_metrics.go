// Package telemetry exposes Prometheus metrics for the sync service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/scheduler"
)

// SyncMetricsConfig holds configuration for the metrics registry
type SyncMetricsConfig struct {
	// Namespace is the prefix for all metrics.
	// Default: "sync_tiendanube"
	Namespace string

	// HistogramBuckets are the buckets for platform request durations.
	// Default: prometheus.DefBuckets
	HistogramBuckets []float64

	// IncludeRuntime registers the Go runtime and process collectors
	IncludeRuntime bool
}

// DefaultSyncMetricsConfig returns default configuration
func DefaultSyncMetricsConfig() SyncMetricsConfig {
	return SyncMetricsConfig{
		Namespace:        "sync_tiendanube",
		HistogramBuckets: prometheus.DefBuckets,
		IncludeRuntime:   true,
	}
}

// SyncMetrics records platform calls, job runs and reconciliation outcomes.
// Safe for concurrent use.
type SyncMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	rateLimitWait   *prometheus.HistogramVec

	jobRunsTotal     *prometheus.CounterVec
	jobRunDuration   *prometheus.HistogramVec
	jobSkippedTicks  *prometheus.CounterVec
	productsTotal    *prometheus.CounterVec
	inventoryPushes  *prometheus.CounterVec
	imagesTotal      *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	webhookOrders    *prometheus.CounterVec
	lastRunTimestamp *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewSyncMetrics creates the metrics on a private registry
func NewSyncMetrics(cfg SyncMetricsConfig) *SyncMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultSyncMetricsConfig().Namespace
	}
	if len(cfg.HistogramBuckets) == 0 {
		cfg.HistogramBuckets = prometheus.DefBuckets
	}

	m := &SyncMetrics{registry: prometheus.NewRegistry()}
	ns := cfg.Namespace

	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "platform_requests_total",
		Help: "Platform API requests by platform, method and HTTP status.",
	}, []string{"platform", "method", "status"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "platform_request_duration_seconds",
		Help:    "Duration of platform API requests in seconds.",
		Buckets: cfg.HistogramBuckets,
	}, []string{"platform", "method"})

	m.retriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "platform_retries_total",
		Help: "Platform API requests retried after a transient failure.",
	}, []string{"platform", "method"})

	m.rateLimitWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "platform_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a client-side rate limit token.",
		Buckets: cfg.HistogramBuckets,
	}, []string{"platform"})

	m.jobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "job_runs_total",
		Help: "Finished job runs by job and status.",
	}, []string{"job", "status"})

	m.jobRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "job_run_duration_seconds",
		Help:    "Duration of job runs in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
	}, []string{"job"})

	m.jobSkippedTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "job_skipped_ticks_total",
		Help: "Scheduler ticks dropped because the previous run was still in progress.",
	}, []string{"job"})

	m.productsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "products_total",
		Help: "Catalog products reconciled by store and outcome.",
	}, []string{"store", "outcome"})

	m.inventoryPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "inventory_pushes_total",
		Help: "Inventory level writes by store and sync kind.",
	}, []string{"store", "kind"})

	m.imagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "images_total",
		Help: "Image uploads by store and result.",
	}, []string{"store", "result"})

	m.failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "failures_total",
		Help: "Per-item sync failures by sync kind and error kind.",
	}, []string{"kind", "error_kind"})

	m.webhookOrders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "webhook_orders_total",
		Help: "Order webhooks by result.",
	}, []string{"result"})

	m.lastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Name: "last_run_timestamp_seconds",
		Help: "Unix time of the last finished run by sync kind.",
	}, []string{"kind"})

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "http_requests_total",
		Help: "HTTP requests served by route, method and status.",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "http_request_duration_seconds",
		Help:    "Duration of served HTTP requests in seconds.",
		Buckets: cfg.HistogramBuckets,
	}, []string{"route", "method"})

	m.registry.MustRegister(
		m.httpRequestsTotal, m.httpRequestDuration,
		m.requestsTotal, m.requestDuration, m.retriesTotal, m.rateLimitWait,
		m.jobRunsTotal, m.jobRunDuration, m.jobSkippedTicks,
		m.productsTotal, m.inventoryPushes, m.imagesTotal,
		m.failuresTotal, m.webhookOrders, m.lastRunTimestamp,
	)
	if cfg.IncludeRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveRequest records one platform API attempt. status 0 means no response.
func (m *SyncMetrics) ObserveRequest(platform integration.PlatformCode, method string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(string(platform), method, label).Inc()
	m.requestDuration.WithLabelValues(string(platform), method).Observe(duration.Seconds())
}

// ObserveRetry records a retried platform request
func (m *SyncMetrics) ObserveRetry(platform integration.PlatformCode, method string) {
	m.retriesTotal.WithLabelValues(string(platform), method).Inc()
}

// ObserveRateLimitWait records how long a request waited for the local limiter
func (m *SyncMetrics) ObserveRateLimitWait(platform integration.PlatformCode, wait time.Duration) {
	m.rateLimitWait.WithLabelValues(string(platform)).Observe(wait.Seconds())
}

// ObserveRun records a finished scheduler run
func (m *SyncMetrics) ObserveRun(job string, status scheduler.RunStatus, duration time.Duration) {
	m.jobRunsTotal.WithLabelValues(job, string(status)).Inc()
	m.jobRunDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// ObserveSkippedTick records a dropped scheduler tick
func (m *SyncMetrics) ObserveSkippedTick(job string) {
	m.jobSkippedTicks.WithLabelValues(job).Inc()
}

// ObserveReport folds a finished sync report into the counters
func (m *SyncMetrics) ObserveReport(report *integration.SyncReport) {
	if report == nil {
		return
	}
	kind := string(report.Kind)
	for storeID, s := range report.StoreSnapshot() {
		for outcome, n := range s.Outcomes {
			m.productsTotal.WithLabelValues(storeID, string(outcome)).Add(float64(n))
		}
		m.inventoryPushes.WithLabelValues(storeID, kind).Add(float64(s.InventoryPushes))
		m.imagesTotal.WithLabelValues(storeID, "uploaded").Add(float64(s.ImagesUploaded))
		m.imagesTotal.WithLabelValues(storeID, "failed").Add(float64(s.ImagesFailed))
	}
	for _, f := range report.FailureSnapshot() {
		m.failuresTotal.WithLabelValues(kind, string(f.Kind)).Inc()
	}
	m.lastRunTimestamp.WithLabelValues(kind).Set(float64(time.Now().Unix()))
}

// ObserveWebhook records an order webhook result (applied, duplicate, rejected, failed)
func (m *SyncMetrics) ObserveWebhook(result string) {
	m.webhookOrders.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served HTTP request. route is the matched
// route pattern, or "unmatched".
func (m *SyncMetrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Registry returns the underlying registry
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler that serves the metrics
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
