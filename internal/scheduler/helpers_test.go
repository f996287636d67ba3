package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/MrSnakeDoc/warmup/internal/catalog"
	"github.com/MrSnakeDoc/warmup/internal/domain"
)

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// fakeCatalog serves full pages of generated items
type fakeCatalog struct {
	pages      int // full pages available before the source is exhausted
	statusAt   int // page index answering statusCode, -1 for none
	statusCode int
	errAt      int // page index failing with a transport error, -1 for none
	onFetch    func(index int)

	mu      sync.Mutex
	offsets []int
}

func newFakeCatalog(pages int) *fakeCatalog {
	return &fakeCatalog{pages: pages, statusAt: -1, errAt: -1}
}

func (f *fakeCatalog) FetchPage(ctx context.Context, offset, limit int) (catalog.Page, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.mu.Unlock()

	index := offset / limit
	if f.onFetch != nil {
		f.onFetch(index)
	}
	if err := ctx.Err(); err != nil {
		return catalog.Page{Offset: offset}, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	if index == f.errAt {
		return catalog.Page{Offset: offset}, errors.New("connection reset by peer")
	}
	if index == f.statusAt {
		return catalog.Page{Offset: offset, StatusCode: f.statusCode}, nil
	}

	page := catalog.Page{Offset: offset, StatusCode: 200}
	if index >= f.pages {
		return page, nil
	}
	for i := 0; i < limit; i++ {
		n := offset + i
		page.Items = append(page.Items, catalog.Item{
			ID:       int64(n + 1),
			Title:    fmt.Sprintf("item-%d", n),
			Price:    float64(n%150) + 0.99,
			Images:   []string{fmt.Sprintf("https://img/%d.png", n)},
			Category: catalog.Category{Name: fmt.Sprintf("cat-%d", n%4)},
		})
	}
	return page, nil
}

func (f *fakeCatalog) Offsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

// fakePinger answers with err and counts calls
type fakePinger struct {
	err   error
	calls atomic.Int32
}

func (p *fakePinger) Ping(ctx context.Context) error {
	p.calls.Add(1)
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}
	return p.err
}

// fakeSync records whether it was invoked
type fakeSync struct {
	calls  atomic.Int32
	result domain.SyncResult
	err    error
	panic  any
}

func (s *fakeSync) Run(ctx context.Context) (domain.SyncResult, error) {
	s.calls.Add(1)
	if s.panic != nil {
		panic(s.panic)
	}
	return s.result, s.err
}

// instantPlan keeps the real order and step layout without the delays
func instantPlan() Plan {
	return DefaultPlan().Scale(0)
}
