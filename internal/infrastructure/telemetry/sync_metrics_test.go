package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/ecommerce"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/scheduler"
)

var (
	_ ecommerce.RequestObserver = (*SyncMetrics)(nil)
	_ scheduler.RunObserver     = (*SyncMetrics)(nil)
)

func newTestMetrics() *SyncMetrics {
	cfg := DefaultSyncMetricsConfig()
	cfg.IncludeRuntime = false
	return NewSyncMetrics(cfg)
}

func TestSyncMetrics_PlatformRequests(t *testing.T) {
	m := newTestMetrics()

	m.ObserveRequest(integration.PlatformCodeShopify, http.MethodGet, 200, 120*time.Millisecond)
	m.ObserveRequest(integration.PlatformCodeShopify, http.MethodGet, 200, 80*time.Millisecond)
	m.ObserveRequest(integration.PlatformCodeTiendanube, http.MethodPost, 0, time.Second)
	m.ObserveRetry(integration.PlatformCodeShopify, http.MethodPut)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("SHOPIFY", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("TIENDANUBE", "POST", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.retriesTotal.WithLabelValues("SHOPIFY", "PUT")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))

	m.ObserveRateLimitWait(integration.PlatformCodeShopify, 50*time.Millisecond)
	m.ObserveRateLimitWait(integration.PlatformCodeTiendanube, 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.rateLimitWait))
}

func TestSyncMetrics_SchedulerRuns(t *testing.T) {
	m := newTestMetrics()

	m.ObserveRun("stock", scheduler.RunStatusSuccess, 3*time.Second)
	m.ObserveRun("stock", scheduler.RunStatusFailed, time.Second)
	m.ObserveSkippedTick("stock")
	m.ObserveSkippedTick("stock")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRunsTotal.WithLabelValues("stock", "SUCCESS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRunsTotal.WithLabelValues("stock", "FAILED")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.jobSkippedTicks.WithLabelValues("stock")))
}

func TestSyncMetrics_ObserveReport(t *testing.T) {
	m := newTestMetrics()

	report := integration.NewSyncReport(integration.SyncKindCatalog)
	report.RecordOutcome("123456", integration.OutcomeCreated)
	report.RecordOutcome("123456", integration.OutcomeSkipped)
	report.RecordOutcome("123456", integration.OutcomeSkipped)
	report.RecordInventoryPush("123456")
	report.RecordImage("123456", true)
	report.RecordImage("123456", false)
	report.RecordFailure("123456", "p-1", integration.ErrMalformedData)
	report.RecordFailure("123456", "p-2", errors.New("unexpected"))
	report.Finish()

	m.ObserveReport(report)
	m.ObserveReport(nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.productsTotal.WithLabelValues("123456", "skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inventoryPushes.WithLabelValues("123456", "catalog")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.imagesTotal.WithLabelValues("123456", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failuresTotal.WithLabelValues("catalog", "MALFORMED_DATA")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failuresTotal.WithLabelValues("catalog", "UNKNOWN")))
	assert.Greater(t, testutil.ToFloat64(m.lastRunTimestamp.WithLabelValues("catalog")), float64(0))
}

func TestSyncMetrics_HTTPRequests(t *testing.T) {
	m := newTestMetrics()

	m.ObserveHTTPRequest("/api/v1/webhooks/orders", "POST", 200, 15*time.Millisecond)
	m.ObserveHTTPRequest("/api/v1/webhooks/orders", "POST", 401, time.Millisecond)
	m.ObserveHTTPRequest("/api/v1/webhooks/orders", "POST", 200, 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/webhooks/orders", "POST", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/webhooks/orders", "POST", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpRequestDuration))
}

func TestSyncMetrics_Handler(t *testing.T) {
	m := NewSyncMetrics(SyncMetricsConfig{Namespace: "test_sync", IncludeRuntime: true})
	m.ObserveWebhook("applied")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `test_sync_webhook_orders_total{result="applied"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
