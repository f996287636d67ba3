package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/telemetry"
)

const (
	// DefaultReportInterval is how often the store size is published
	DefaultReportInterval = 15 * time.Second
)

// StoreReporter periodically publishes the number of stored products
type StoreReporter struct {
	store    store.Store
	logger   logger.Logger
	metrics  *telemetry.Metrics
	interval time.Duration
	stopCh   chan struct{}
}

// NewStoreReporter creates a new store reporter
func NewStoreReporter(
	st store.Store,
	log logger.Logger,
	metrics *telemetry.Metrics,
	interval time.Duration,
) *StoreReporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}

	return &StoreReporter{
		store:    st,
		logger:   log,
		metrics:  metrics,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start reports once, then on every tick until Stop or ctx is done
func (r *StoreReporter) Start(ctx context.Context) {
	r.Report(ctx)

	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Report(ctx)
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reporter
func (r *StoreReporter) Stop() {
	close(r.stopCh)
}

// Report reads the current count and publishes it
func (r *StoreReporter) Report(ctx context.Context) {
	count, err := r.store.Count(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("failed to read store size", logger.Error(err))
		}
		return
	}

	r.metrics.RecordStoreSize(ctx, count)
	r.logger.Debug("store size", logger.Int64("products", count))
}
