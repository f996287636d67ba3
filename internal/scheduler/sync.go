package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrSnakeDoc/warmup/internal/catalog"
	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/telemetry"
)

// PageFetcher requests one page of the catalog
type PageFetcher interface {
	FetchPage(ctx context.Context, offset, limit int) (catalog.Page, error)
}

// SyncOptions configures one sync run
type SyncOptions struct {
	TargetCount  int
	PageSize     int
	BatchDelay   time.Duration
	ResetOnStart bool
}

// MaxPages is the fetch bound: ceil(target / pageSize)
func (o SyncOptions) MaxPages() int {
	if o.PageSize <= 0 || o.TargetCount <= 0 {
		return 0
	}
	return (o.TargetCount + o.PageSize - 1) / o.PageSize
}

// SyncEngine ingests catalog pages into the store, one batch per page
type SyncEngine struct {
	fetcher PageFetcher
	mapper  *catalog.Mapper
	store   store.Store
	opts    SyncOptions
	logger  logger.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// NewSyncEngine creates a sync engine
func NewSyncEngine(
	fetcher PageFetcher,
	st store.Store,
	opts SyncOptions,
	log logger.Logger,
	metrics *telemetry.Metrics,
	tracer trace.Tracer,
) *SyncEngine {
	return &SyncEngine{
		fetcher: fetcher,
		mapper:  catalog.NewMapper(),
		store:   st,
		opts:    opts,
		logger:  log,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Run fetches pages in increasing offset order until the target is reached,
// the source is exhausted or answers non-2xx, or ctx is cancelled.
// Cancellation is a clean stop and returns the partial result without error.
// Any other fault returns the result with an error wrapping domain.ErrSyncFailed.
func (e *SyncEngine) Run(ctx context.Context) (domain.SyncResult, error) {
	result := domain.SyncResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := e.logger.With(logger.String("run_id", result.RunID))

	log.Info("starting sync",
		logger.Int("target", e.opts.TargetCount),
		logger.Int("page_size", e.opts.PageSize),
		logger.Int("max_pages", e.opts.MaxPages()))

	reason, err := e.loop(ctx, log, &result)
	result.StopReason = reason

	// the final count is read from the store even when ctx is done
	count, countErr := e.store.Count(context.WithoutCancel(ctx))
	if countErr != nil && err == nil {
		err = fmt.Errorf("%w: failed to count products: %w", domain.ErrSyncFailed, countErr)
		result.StopReason = domain.StopFailed
	}
	result.TotalProductsSynced = count
	result.CompletedAt = time.Now().UTC()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	e.metrics.RecordSyncDuration(ctx, result.Duration, err == nil)

	if err != nil {
		result.Error = err.Error()
		log.Error("sync failed",
			logger.Int("pages_fetched", result.PagesFetched),
			logger.Int64("total_products", result.TotalProductsSynced),
			logger.Error(err))
		return result, err
	}

	log.Info("sync finished",
		logger.String("reason", string(result.StopReason)),
		logger.Int("pages_fetched", result.PagesFetched),
		logger.Int64("total_products", result.TotalProductsSynced),
		logger.Duration("duration", result.Duration))
	return result, nil
}

func (e *SyncEngine) loop(ctx context.Context, log logger.Logger, result *domain.SyncResult) (domain.StopReason, error) {
	if e.opts.ResetOnStart {
		if err := e.store.DeleteAll(ctx); err != nil {
			if ctx.Err() != nil {
				return domain.StopCancelled, nil
			}
			return domain.StopFailed, fmt.Errorf("%w: failed to reset store: %w", domain.ErrSyncFailed, err)
		}
		log.Info("store reset before sync")
	}

	received := 0
	maxPages := e.opts.MaxPages()
	for i := 0; i < maxPages; i++ {
		offset := i * e.opts.PageSize

		n, reason, err := e.syncPage(ctx, log, offset)
		if reason != "" || err != nil {
			return reason, err
		}

		result.PagesFetched++
		received += n

		if received >= e.opts.TargetCount {
			return domain.StopTargetReached, nil
		}
		if i == maxPages-1 {
			break
		}
		if err := Sleep(ctx, e.opts.BatchDelay); err != nil {
			log.Info("sync stopped during batch delay", logger.Int("received", received))
			return domain.StopCancelled, nil
		}
	}

	return domain.StopPageLimit, nil
}

// syncPage fetches and commits the page at offset. A non-empty reason ends the loop.
func (e *SyncEngine) syncPage(ctx context.Context, log logger.Logger, offset int) (int, domain.StopReason, error) {
	ctx, span := e.tracer.Start(ctx, "sync/page", trace.WithAttributes(
		attribute.Int("offset", offset),
		attribute.Int("limit", e.opts.PageSize)))
	defer span.End()

	page, err := e.fetcher.FetchPage(ctx, offset, e.opts.PageSize)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) || ctx.Err() != nil {
			e.metrics.RecordSyncPage(ctx, telemetry.PageCancelled, 0)
			log.Info("sync stopped during page fetch", logger.Int("offset", offset))
			return 0, domain.StopCancelled, nil
		}
		e.metrics.RecordSyncPage(ctx, telemetry.PageFailed, 0)
		span.SetStatus(codes.Error, err.Error())
		return 0, domain.StopFailed, fmt.Errorf("%w: %w", domain.ErrSyncFailed, err)
	}

	if !page.OK() {
		e.metrics.RecordSyncPage(ctx, telemetry.PageUnavailable, 0)
		log.Warn("catalog page not available, stopping sync",
			logger.Int("offset", offset),
			logger.Int("status", page.StatusCode),
			logger.Error(domain.ErrSourceUnavailable))
		return 0, domain.StopSourceUnavailable, nil
	}

	if page.Empty() {
		e.metrics.RecordSyncPage(ctx, telemetry.PageEmpty, 0)
		log.Info("catalog exhausted", logger.Int("offset", offset))
		return 0, domain.StopSourceExhausted, nil
	}

	products, skipped := e.mapper.MapItems(page.Items)
	for _, reason := range skipped {
		log.Warn("skipping catalog item", logger.Int("offset", offset), logger.Error(reason))
	}

	// a page is either committed whole or abandoned before the commit
	if err := ctx.Err(); err != nil {
		e.metrics.RecordSyncPage(ctx, telemetry.PageCancelled, 0)
		log.Info("sync stopped before batch commit", logger.Int("offset", offset))
		return 0, domain.StopCancelled, nil
	}
	if err := e.store.InsertBatch(context.WithoutCancel(ctx), products); err != nil {
		e.metrics.RecordSyncPage(ctx, telemetry.PageFailed, 0)
		span.SetStatus(codes.Error, err.Error())
		return 0, domain.StopFailed, fmt.Errorf("%w: %w", domain.ErrSyncFailed, err)
	}

	e.metrics.RecordSyncPage(ctx, telemetry.PageCommitted, len(products))
	span.SetAttributes(attribute.Int("products", len(products)))
	log.Debug("batch committed",
		logger.Int("offset", offset),
		logger.Int("items", len(page.Items)),
		logger.Int("stored", len(products)))

	return len(page.Items), "", nil
}
