package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsNilProvider(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// nil metrics must be usable
	ctx := context.Background()
	m.RecordHealthCheck(ctx, "x", time.Second)
	m.RecordExternalCall(ctx, true)
	m.RecordSyncPage(ctx, PageCommitted, 10)
	m.RecordSyncDuration(ctx, time.Second, true)
	m.RecordState(ctx, domain.StateCompleted)
	m.RecordStoreSize(ctx, 3)
}

func TestHealthCheckMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHealthCheck(ctx, "DatabaseConnectivity", 2*time.Second)
	m.RecordHealthCheck(ctx, "CacheWarmup", 3*time.Second)
	m.RecordExternalCall(ctx, false)

	got := collect(t, reader)
	assert.EqualValues(t, 2, sumOf(t, got["warmup_health_checks_completed_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["warmup_external_calls_total"]))

	hist, ok := got["warmup_health_check_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)
}

func TestSyncMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSyncPage(ctx, PageCommitted, 10)
	m.RecordSyncPage(ctx, PageCommitted, 10)
	m.RecordSyncPage(ctx, PageUnavailable, 0)
	m.RecordSyncDuration(ctx, 4*time.Second, true)
	m.RecordState(ctx, domain.StateRunningSync)

	got := collect(t, reader)
	assert.EqualValues(t, 3, sumOf(t, got["warmup_sync_pages_total"]))
	assert.EqualValues(t, 20, sumOf(t, got["warmup_sync_products_total"]))

	gauge, ok := got["warmup_orchestration_state"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.EqualValues(t, domain.StateRunningSync, gauge.DataPoints[0].Value)
}
