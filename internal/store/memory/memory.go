package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/store"
)

// Store keeps products in insertion order behind a RWMutex.
// A batch is appended under a single write lock, so readers see either
// none or all of it.
type Store struct {
	mu       sync.RWMutex
	products []domain.Product
	nextID   int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty memory store
func New() *Store {
	return &Store{nextID: 1}
}

// InsertBatch appends the whole batch at once
func (s *Store) InsertBatch(_ context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := make([]domain.Product, len(products))
	copy(batch, products)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range batch {
		batch[i].ID = s.nextID
		s.nextID++
	}
	s.products = append(s.products, batch...)
	return nil
}

// Count returns the number of stored products
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.products)), nil
}

func (s *Store) DistinctCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.products {
		seen[p.Category] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) AveragePrice(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.products) == 0 {
		return 0, nil
	}
	var sum int64
	for _, p := range s.products {
		sum += p.PriceCents
	}
	return float64(sum) / float64(len(s.products)), nil
}

func (s *Store) CategoryAverages(_ context.Context) ([]store.CategoryAggregate, error) {
	s.mu.RLock()
	type acc struct {
		count int64
		sum   int64
	}
	groups := make(map[string]*acc)
	for _, p := range s.products {
		g := groups[p.Category]
		if g == nil {
			g = &acc{}
			groups[p.Category] = g
		}
		g.count++
		g.sum += p.PriceCents
	}
	s.mu.RUnlock()

	out := make([]store.CategoryAggregate, 0, len(groups))
	for name, g := range groups {
		out = append(out, store.CategoryAggregate{
			Category:          name,
			Count:             g.count,
			AveragePriceCents: float64(g.sum) / float64(g.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) PriceRangeCounts(_ context.Context, bounds []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make([]int64, len(bounds)+1)
	for _, p := range s.products {
		counts[store.Bucket(p.PriceCents, bounds)]++
	}
	return counts, nil
}

func (s *Store) LatestUpdate(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, p := range s.products {
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	return latest, len(s.products) > 0, nil
}

// Sample returns a copy of the first n products
func (s *Store) Sample(_ context.Context, n int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.products) {
		n = len(s.products)
	}
	if n < 0 {
		n = 0
	}
	out := make([]domain.Product, n)
	copy(out, s.products[:n])
	return out, nil
}

// DeleteAll clears the store and restarts ID assignment
func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = nil
	s.nextID = 1
	return nil
}

func (s *Store) Close() error { return nil }
