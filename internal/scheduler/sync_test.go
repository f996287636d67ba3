package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/store/memory"
	"github.com/MrSnakeDoc/warmup/internal/store/storetest"
)

func newTestEngine(fetcher PageFetcher, st *memory.Store, opts SyncOptions) *SyncEngine {
	return NewSyncEngine(fetcher, st, opts, logger.Nop(), nil, testTracer())
}

func TestSyncOptionsMaxPages(t *testing.T) {
	tests := []struct {
		target, pageSize, want int
	}{
		{150, 10, 15},
		{200, 10, 20},
		{25, 10, 3},
		{5, 10, 1},
		{0, 10, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		got := SyncOptions{TargetCount: tt.target, PageSize: tt.pageSize}.MaxPages()
		assert.Equal(t, tt.want, got, "target=%d pageSize=%d", tt.target, tt.pageSize)
	}
}

func TestSyncFifteenPages(t *testing.T) {
	src := newFakeCatalog(15)
	st := memory.New()

	result, err := newTestEngine(src, st, SyncOptions{TargetCount: 150, PageSize: 10}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, src.Offsets(), 15)
	assert.EqualValues(t, 150, result.TotalProductsSynced)
	assert.Equal(t, 15, result.PagesFetched)
	assert.Equal(t, domain.StopTargetReached, result.StopReason)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.CompletedAt.Before(result.StartedAt))
	assert.Empty(t, result.Error)

	for i, offset := range src.Offsets() {
		assert.Equal(t, i*10, offset, "pages must be fetched in increasing offset order")
	}

	sample, err := st.Sample(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Zero(t, sample[0].Rating)
	assert.Zero(t, sample[0].RatingCount)
}

func TestSyncStopsOnServerError(t *testing.T) {
	src := newFakeCatalog(15)
	src.statusAt = 2 // third page
	src.statusCode = 500

	result, err := newTestEngine(src, memory.New(), SyncOptions{TargetCount: 150, PageSize: 10}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, src.Offsets(), 3)
	assert.EqualValues(t, 20, result.TotalProductsSynced)
	assert.Equal(t, domain.StopSourceUnavailable, result.StopReason)
}

func TestSyncStopsOnEmptyPage(t *testing.T) {
	src := newFakeCatalog(4)

	result, err := newTestEngine(src, memory.New(), SyncOptions{TargetCount: 200, PageSize: 10}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, src.Offsets(), 5)
	assert.EqualValues(t, 40, result.TotalProductsSynced)
	assert.Equal(t, domain.StopSourceExhausted, result.StopReason)
}

func TestSyncNeverExceedsFetchBound(t *testing.T) {
	src := newFakeCatalog(1000)

	result, err := newTestEngine(src, memory.New(), SyncOptions{TargetCount: 25, PageSize: 10}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, src.Offsets(), 3)
	// overshoot is at most one page
	assert.EqualValues(t, 30, result.TotalProductsSynced)
}

func TestSyncTransportErrorIsFatal(t *testing.T) {
	src := newFakeCatalog(15)
	src.errAt = 1

	result, err := newTestEngine(src, memory.New(), SyncOptions{TargetCount: 150, PageSize: 10}).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, domain.ErrSyncFailed))
	assert.EqualValues(t, 10, result.TotalProductsSynced, "count is re-read from the store")
	assert.Equal(t, domain.StopFailed, result.StopReason)
	assert.NotEmpty(t, result.Error)
}

func TestSyncStoreErrorIsFatal(t *testing.T) {
	st := &failingStore{Store: memory.New(), failOn: 2}

	result, err := NewSyncEngine(newFakeCatalog(15), st, SyncOptions{TargetCount: 150, PageSize: 10},
		logger.Nop(), nil, testTracer()).Run(context.Background())

	require.ErrorIs(t, err, domain.ErrSyncFailed)
	assert.EqualValues(t, 10, result.TotalProductsSynced)
}

func TestSyncCancelledDuringDelay(t *testing.T) {
	src := newFakeCatalog(15)
	ctx, cancel := context.WithCancel(context.Background())
	src.onFetch = func(index int) {
		if index == 1 {
			// cancel once the second page is in flight; the delay after it observes it
			time.AfterFunc(50*time.Millisecond, cancel)
		}
	}
	opts := SyncOptions{TargetCount: 150, PageSize: 10, BatchDelay: 200 * time.Millisecond}

	start := time.Now()
	result, err := newTestEngine(src, memory.New(), opts).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.StopCancelled, result.StopReason)
	assert.EqualValues(t, 20, result.TotalProductsSynced)
	assert.Len(t, src.Offsets(), 2)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSyncCancelledBeforeFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestEngine(newFakeCatalog(15), memory.New(), SyncOptions{TargetCount: 150, PageSize: 10}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StopCancelled, result.StopReason)
	assert.Zero(t, result.TotalProductsSynced)
}

func TestSyncResetsStore(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.InsertBatch(ctx, []domain.Product{
		storetest.Product("stale", "Old", 100, time.Now()),
	}))

	result, err := newTestEngine(newFakeCatalog(2), st, SyncOptions{TargetCount: 20, PageSize: 10, ResetOnStart: true}).Run(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20, result.TotalProductsSynced)

	kept := memory.New()
	require.NoError(t, kept.InsertBatch(ctx, []domain.Product{
		storetest.Product("stale", "Old", 100, time.Now()),
	}))
	result, err = newTestEngine(newFakeCatalog(2), kept, SyncOptions{TargetCount: 20, PageSize: 10}).Run(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 21, result.TotalProductsSynced)
}

// failingStore fails the failOn-th InsertBatch call
type failingStore struct {
	*memory.Store
	failOn int
	calls  int
}

func (s *failingStore) InsertBatch(ctx context.Context, products []domain.Product) error {
	s.calls++
	if s.calls == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.InsertBatch(ctx, products)
}
