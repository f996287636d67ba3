// Package store defines the record store used by the sync engine (writer)
// and the query service (readers).
//
// Every method is atomic from a reader's point of view: InsertBatch either
// commits the whole page or nothing, and read methods never observe a
// partially applied batch.
package store

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

// CategoryAggregate is one row of a group-by-category aggregation.
type CategoryAggregate struct {
	Category          string
	Count             int64
	AveragePriceCents float64
}

// Store is the keyed product store.
type Store interface {
	// InsertBatch appends records in one atomic commit and assigns IDs.
	InsertBatch(ctx context.Context, products []domain.Product) error
	Count(ctx context.Context) (int64, error)
	// DistinctCategories returns category names in ascending order.
	DistinctCategories(ctx context.Context) ([]string, error)
	// AveragePrice returns the mean price in cents, 0 when empty.
	AveragePrice(ctx context.Context) (float64, error)
	// CategoryAverages groups by category, ordered by count desc then name asc.
	CategoryAverages(ctx context.Context) ([]CategoryAggregate, error)
	// PriceRangeCounts counts products per bucket. bounds are inclusive upper
	// limits in cents, ascending; the result has len(bounds)+1 entries, the
	// last one counting prices above the final bound.
	PriceRangeCounts(ctx context.Context, bounds []int64) ([]int64, error)
	// LatestUpdate returns the most recent UpdatedAt; ok is false when empty.
	LatestUpdate(ctx context.Context) (t time.Time, ok bool, err error)
	// Sample returns the first n records in insertion order.
	Sample(ctx context.Context, n int) ([]domain.Product, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

// Bucket returns the index of the price range cents falls into.
func Bucket(cents int64, bounds []int64) int {
	for i, b := range bounds {
		if cents <= b {
			return i
		}
	}
	return len(bounds)
}
