// Package query answers the read-only product endpoints. Every operation is
// safe on an empty or partially synced store and never waits on the sync.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/store"
)

const (
	StatusLoaded    = "loaded"
	StatusNotLoaded = "not loaded"

	// EstimatedLoadTime is reported by Stats while nothing is stored yet
	EstimatedLoadTime = "~1-2 minutes"

	NoteEmpty    = "No products stored yet; the background sync is still starting."
	NoteNonEmpty = "Products are available; the background sync may still be adding more."

	MessageLoading = "data is still loading"

	TopCategoriesLimit = 10
	SampleSize         = 5
)

// priceBounds are the inclusive upper limits of the histogram, in cents
var priceBounds = []int64{1000, 5000, 10000}

var priceLabels = []string{"<=10", "<=50", "<=100", ">100"}

// Summary is the overview payload
type Summary struct {
	TotalProducts int64   `json:"total_products"`
	Categories    int     `json:"categories"`
	AveragePrice  float64 `json:"average_price"`
	Status        string  `json:"status"`
}

// Status reports freshness
type Status struct {
	TotalProducts int64      `json:"total_products"`
	LastUpdated   *time.Time `json:"last_updated"`
	Note          string     `json:"note"`
}

// CategoryStat is one entry of the top categories
type CategoryStat struct {
	Category     string  `json:"category"`
	Count        int64   `json:"count"`
	AveragePrice float64 `json:"average_price"`
}

// PriceRange is one histogram bucket
type PriceRange struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// Stats is the aggregate payload. EstimatedTime and Message are only set
// while the store is empty.
type Stats struct {
	Loaded          bool           `json:"loaded"`
	ProductsCount   int64          `json:"products_count"`
	CategoriesCount int            `json:"categories_count"`
	EstimatedTime   string         `json:"estimated_time,omitempty"`
	Message         string         `json:"message,omitempty"`
	TopCategories   []CategoryStat `json:"top_categories,omitempty"`
	PriceRanges     []PriceRange   `json:"price_ranges,omitempty"`
}

// SampleItem is the public view of a product
type SampleItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service aggregates over the store
type Service struct {
	store store.Store
}

// NewService creates a query service
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Summary returns counts, the average price and the load status
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	cats, err := s.store.DistinctCategories(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	avg, err := s.store.AveragePrice(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}

	out := Summary{
		TotalProducts: count,
		Categories:    len(cats),
		AveragePrice:  domain.RoundAmount(avg / 100),
		Status:        StatusNotLoaded,
	}
	if count > 0 {
		out.Status = StatusLoaded
	}
	return out, nil
}

// Status returns the count and the most recent update. The store only
// grows while the sync runs, so the timestamp is read before the count and
// read again when a batch landed in between; count, timestamp and note
// then describe the same state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	latest, ok, err := s.store.LatestUpdate(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}
	if count > 0 && !ok {
		if latest, ok, err = s.store.LatestUpdate(ctx); err != nil {
			return Status{}, fmt.Errorf("status: %w", err)
		}
	}

	out := Status{TotalProducts: count, Note: NoteEmpty}
	if ok {
		out.LastUpdated = &latest
		out.Note = NoteNonEmpty
	}
	return out, nil
}

// Stats returns top categories and the price histogram, or a loading payload
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if count == 0 {
		return Stats{
			Loaded:        false,
			EstimatedTime: EstimatedLoadTime,
			Message:       MessageLoading,
		}, nil
	}

	groups, err := s.store.CategoryAverages(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	ranges, err := s.store.PriceRangeCounts(ctx, priceBounds)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}

	out := Stats{
		Loaded:          true,
		ProductsCount:   count,
		CategoriesCount: len(groups),
		TopCategories:   make([]CategoryStat, 0, TopCategoriesLimit),
		PriceRanges:     make([]PriceRange, len(priceLabels)),
	}
	for i, g := range groups {
		if i == TopCategoriesLimit {
			break
		}
		out.TopCategories = append(out.TopCategories, CategoryStat{
			Category:     g.Category,
			Count:        g.Count,
			AveragePrice: domain.RoundAmount(g.AveragePriceCents / 100),
		})
	}
	for i, label := range priceLabels {
		out.PriceRanges[i] = PriceRange{Range: label}
		if i < len(ranges) {
			out.PriceRanges[i].Count = ranges[i]
		}
	}
	return out, nil
}

// Categories returns distinct category names in ascending order
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.store.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

// Sample returns the first products in store order
func (s *Service) Sample(ctx context.Context) ([]SampleItem, error) {
	products, err := s.store.Sample(ctx, SampleSize)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	out := make([]SampleItem, 0, len(products))
	for _, p := range products {
		out = append(out, SampleItem{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price(),
			Image:       p.Image,
			Rating:      p.Rating,
			RatingCount: p.RatingCount,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return out, nil
}
