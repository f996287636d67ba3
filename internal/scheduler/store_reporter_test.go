package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/store/memory"
	"github.com/MrSnakeDoc/warmup/internal/store/storetest"
)

func TestStoreReporterReports(t *testing.T) {
	log, logs := logger.NewObserved("debug")
	st := memory.New()
	if err := st.InsertBatch(context.Background(), []domain.Product{
		storetest.Product("a", "Misc", 100, time.Now()),
		storetest.Product("b", "Misc", 200, time.Now()),
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	r := NewStoreReporter(st, log, nil, 10*time.Millisecond)
	r.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	entries := logs.FilterMessage("store size").All()
	if len(entries) < 2 {
		t.Fatalf("expected periodic reports, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["products"]; got != int64(2) {
		t.Errorf("products = %v, want 2", got)
	}
}

func TestStoreReporterDefaultInterval(t *testing.T) {
	r := NewStoreReporter(memory.New(), logger.Nop(), nil, 0)
	if r.interval != DefaultReportInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultReportInterval)
	}
}
