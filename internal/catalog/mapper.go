package catalog

import (
	"fmt"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

// Mapper converts catalog items to domain.Product records
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a mapper stamping records with the current time
func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// MapItems converts a page of items. Items that cannot be stored are
// returned in skipped with the reason; the rest keep source order.
// The source carries no rating data, so Rating and RatingCount stay 0.
func (m *Mapper) MapItems(items []Item) (products []domain.Product, skipped []error) {
	now := m.now().UTC()
	products = make([]domain.Product, 0, len(items))

	for _, item := range items {
		p := domain.Product{
			Title:       item.Title,
			Description: item.Description,
			Category:    item.Category.Name,
			PriceCents:  domain.AmountToCents(item.Price),
			Image:       firstImage(item),
			Rating:      0,
			RatingCount: 0,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := p.Normalize(); err != nil {
			skipped = append(skipped, fmt.Errorf("item %d: %w", item.ID, err))
			continue
		}
		products = append(products, p)
	}

	return products, skipped
}

// firstImage picks the product's first non-empty image, falling back to the category image
func firstImage(item Item) string {
	for _, img := range item.Images {
		if img != "" {
			return img
		}
	}
	return item.Category.Image
}
