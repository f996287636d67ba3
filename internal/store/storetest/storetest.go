// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/store"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Product builds a record with the given category and price in cents.
func Product(title, category string, cents int64, updated time.Time) domain.Product {
	return domain.Product{
		Title:       title,
		Description: "description of " + title,
		Category:    category,
		PriceCents:  cents,
		Image:       "https://img.example/" + title + ".png",
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
}

// Run executes the shared suite against a backend.
func Run(t *testing.T, newStore Factory) {
	t.Run("empty store", func(t *testing.T) { testEmpty(t, newStore(t)) })
	t.Run("aggregates", func(t *testing.T) { testAggregates(t, newStore(t)) })
	t.Run("categories sort by byte order", func(t *testing.T) { testCategoryByteOrder(t, newStore(t)) })
	t.Run("sample keeps insertion order", func(t *testing.T) { testSampleOrder(t, newStore(t)) })
	t.Run("latest update never moves backwards", func(t *testing.T) { testLatestUpdate(t, newStore(t)) })
	t.Run("delete all", func(t *testing.T) { testDeleteAll(t, newStore(t)) })
	t.Run("readers never see partial batches", func(t *testing.T) { testBatchAtomicity(t, newStore(t)) })
}

func testEmpty(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	cats, err := s.DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)

	avg, err := s.AveragePrice(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)

	groups, err := s.CategoryAverages(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	ranges, err := s.PriceRangeCounts(ctx, []int64{1000, 5000, 10000})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0}, ranges)

	_, ok, err := s.LatestUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	sample, err := s.Sample(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, sample)
}

func testAggregates(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertBatch(ctx, []domain.Product{
		Product("a", "Shoes", 1000, base),
		Product("b", "Shoes", 3000, base.Add(time.Minute)),
		Product("c", "Clothes", 5000, base.Add(2*time.Minute)),
	}))
	require.NoError(t, s.InsertBatch(ctx, []domain.Product{
		Product("d", "Electronics", 25000, base.Add(3*time.Minute)),
		Product("e", "Clothes", 10000, base.Add(time.Second)),
		Product("f", "Books", 500, base),
	}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	cats, err := s.DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Clothes", "Electronics", "Shoes"}, cats)

	avg, err := s.AveragePrice(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 7416.67, avg, 0.01)

	groups, err := s.CategoryAverages(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 4)
	// count desc, then name asc
	assert.Equal(t, "Clothes", groups[0].Category)
	assert.EqualValues(t, 2, groups[0].Count)
	assert.InDelta(t, 7500, groups[0].AveragePriceCents, 0.001)
	assert.Equal(t, "Shoes", groups[1].Category)
	assert.InDelta(t, 2000, groups[1].AveragePriceCents, 0.001)
	assert.Equal(t, "Books", groups[2].Category)
	assert.Equal(t, "Electronics", groups[3].Category)

	ranges, err := s.PriceRangeCounts(ctx, []int64{1000, 5000, 10000})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2, 1, 1}, ranges)

	latest, ok, err := s.LatestUpdate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(base.Add(3*time.Minute)), "latest = %v", latest)
}

func testCategoryByteOrder(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertBatch(ctx, []domain.Product{
		Product("a", "banana", 100, now),
		Product("b", "Zebra", 100, now),
		Product("c", "apple", 100, now),
	}))

	cats, err := s.DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zebra", "apple", "banana"}, cats)

	groups, err := s.CategoryAverages(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Zebra", groups[0].Category)
	assert.Equal(t, "apple", groups[1].Category)
	assert.Equal(t, "banana", groups[2].Category)
}

func testLatestUpdate(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertBatch(ctx, []domain.Product{
		Product("a", "Home", 100, base),
		Product("b", "Home", 100, base.Add(time.Hour)),
	}))
	require.NoError(t, s.InsertBatch(ctx, []domain.Product{
		Product("c", "Home", 100, base.Add(time.Minute)),
	}))

	latest, ok, err := s.LatestUpdate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(base.Add(time.Hour)), "latest = %v", latest)

	require.NoError(t, s.DeleteAll(ctx))
	_, ok, err = s.LatestUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testSampleOrder(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for batch := 0; batch < 3; batch++ {
		page := make([]domain.Product, 0, 3)
		for i := 0; i < 3; i++ {
			page = append(page, Product(fmt.Sprintf("p-%d-%d", batch, i), "Misc", 100, now))
		}
		require.NoError(t, s.InsertBatch(ctx, page))
	}

	sample, err := s.Sample(ctx, 5)
	require.NoError(t, err)
	require.Len(t, sample, 5)

	want := []string{"p-0-0", "p-0-1", "p-0-2", "p-1-0", "p-1-1"}
	for i, p := range sample {
		assert.Equal(t, want[i], p.Title)
		assert.NotZero(t, p.ID)
	}
	assert.Less(t, sample[0].ID, sample[4].ID)
}

func testDeleteAll(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.InsertBatch(ctx, []domain.Product{
		Product("a", "Shoes", 100, time.Now()),
	}))
	require.NoError(t, s.DeleteAll(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testBatchAtomicity(t *testing.T, s store.Store) {
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	const (
		pageSize = 10
		pages    = 20
	)

	var wg sync.WaitGroup
	done := make(chan struct{})
	partial := make(chan int64, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			n, err := s.Count(ctx)
			if err != nil {
				continue
			}
			if n%pageSize != 0 {
				select {
				case partial <- n:
				default:
				}
				return
			}
		}
	}()

	now := time.Now()
	for p := 0; p < pages; p++ {
		page := make([]domain.Product, pageSize)
		for i := range page {
			page[i] = Product(fmt.Sprintf("t-%d-%d", p, i), "Misc", int64(i*100), now)
		}
		require.NoError(t, s.InsertBatch(ctx, page))
	}
	close(done)
	wg.Wait()

	select {
	case n := <-partial:
		t.Fatalf("reader observed a partial batch: count=%d", n)
	default:
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, pageSize*pages, count)
}
