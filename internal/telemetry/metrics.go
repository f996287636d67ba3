package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

const (
	// StartupMeterName scopes the startup and sync instruments
	StartupMeterName = "github.com/MrSnakeDoc/warmup/startup"
)

// Page outcomes recorded on warmup_sync_pages_total
const (
	PageCommitted   = "committed"
	PageEmpty       = "empty"
	PageUnavailable = "unavailable"
	PageFailed      = "failed"
	PageCancelled   = "cancelled"
)

// Metrics holds the startup instruments. A nil *Metrics records nothing.
type Metrics struct {
	checkDuration      metric.Float64Histogram
	checksCompleted    metric.Int64Counter
	externalCalls      metric.Int64Counter
	syncPages          metric.Int64Counter
	syncProducts       metric.Int64Counter
	syncDuration       metric.Float64Histogram
	orchestrationState metric.Int64Gauge
	storeProducts      metric.Int64Gauge
}

// NewMetrics creates the instruments on provider.
// If provider is nil, it returns nil (no-op metrics).
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(StartupMeterName)

	checkDuration, err := meter.Float64Histogram(
		"warmup_health_check_duration_seconds",
		metric.WithDescription("Duration of each startup health check"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 15, 20, 30),
	)
	if err != nil {
		return nil, err
	}

	checksCompleted, err := meter.Int64Counter(
		"warmup_health_checks_completed_total",
		metric.WithDescription("Number of startup health checks that ran to completion"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	externalCalls, err := meter.Int64Counter(
		"warmup_external_calls_total",
		metric.WithDescription("Outbound calls made by the startup checks"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	syncPages, err := meter.Int64Counter(
		"warmup_sync_pages_total",
		metric.WithDescription("Catalog pages requested by the sync engine, by outcome"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	syncProducts, err := meter.Int64Counter(
		"warmup_sync_products_total",
		metric.WithDescription("Products committed to the store"),
		metric.WithUnit("{product}"),
	)
	if err != nil {
		return nil, err
	}

	syncDuration, err := meter.Float64Histogram(
		"warmup_sync_duration_seconds",
		metric.WithDescription("Duration of sync runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	orchestrationState, err := meter.Int64Gauge(
		"warmup_orchestration_state",
		metric.WithDescription("Current orchestration state (0 not started, 1 checks, 2 sync, 3 completed, 4 failed)"),
	)
	if err != nil {
		return nil, err
	}

	storeProducts, err := meter.Int64Gauge(
		"warmup_store_products",
		metric.WithDescription("Number of products currently in the store"),
		metric.WithUnit("{product}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		checkDuration:      checkDuration,
		checksCompleted:    checksCompleted,
		externalCalls:      externalCalls,
		syncPages:          syncPages,
		syncProducts:       syncProducts,
		syncDuration:       syncDuration,
		orchestrationState: orchestrationState,
		storeProducts:      storeProducts,
	}, nil
}

// RecordHealthCheck records a completed check and its duration
func (m *Metrics) RecordHealthCheck(ctx context.Context, check string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("check", check))
	m.checkDuration.Record(ctx, d.Seconds(), attrs)
	m.checksCompleted.Add(ctx, 1, attrs)
}

// RecordExternalCall counts one outbound call
func (m *Metrics) RecordExternalCall(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.externalCalls.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordSyncPage counts one page request and the products it committed
func (m *Metrics) RecordSyncPage(ctx context.Context, outcome string, products int) {
	if m == nil {
		return
	}
	m.syncPages.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if products > 0 {
		m.syncProducts.Add(ctx, int64(products))
	}
}

// RecordSyncDuration records the length of a sync run
func (m *Metrics) RecordSyncDuration(ctx context.Context, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.syncDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordState publishes the orchestration state
func (m *Metrics) RecordState(ctx context.Context, state domain.OrchestrationState) {
	if m == nil {
		return
	}
	m.orchestrationState.Record(ctx, int64(state))
}

// RecordStoreSize publishes the current product count
func (m *Metrics) RecordStoreSize(ctx context.Context, count int64) {
	if m == nil {
		return
	}
	m.storeProducts.Record(ctx, count)
}
