package memory

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestInsertBatchDoesNotAliasCallerSlice(t *testing.T) {
	s := New()
	ctx := context.Background()

	page := []domain.Product{storetest.Product("a", "Shoes", 100, time.Now())}
	if err := s.InsertBatch(ctx, page); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	page[0].Title = "mutated"

	sample, err := s.Sample(ctx, 1)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if sample[0].Title != "a" {
		t.Errorf("stored title = %q, want %q", sample[0].Title, "a")
	}
	if page[0].ID != 0 {
		t.Errorf("caller slice got ID %d assigned, want untouched", page[0].ID)
	}
}

func TestDeleteAllRestartsIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.InsertBatch(ctx, []domain.Product{storetest.Product("a", "x", 1, time.Now())})
	_ = s.DeleteAll(ctx)
	_ = s.InsertBatch(ctx, []domain.Product{storetest.Product("b", "x", 1, time.Now())})

	sample, _ := s.Sample(ctx, 1)
	if len(sample) != 1 || sample[0].ID != 1 {
		t.Errorf("after reset got %+v, want single product with ID 1", sample)
	}
}
