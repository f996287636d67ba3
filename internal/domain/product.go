package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Field length limits, counted in runes. Longer values are truncated.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 1000
	MaxCategoryLength    = 100
	MaxImageLength       = 500
)

// Product is one ingested catalog record.
//
// Products are written once by the sync engine and never mutated afterwards.
// The store assigns ID on insert.
type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Price returns the price as a decimal amount.
func (p Product) Price() float64 {
	return CentsToAmount(p.PriceCents)
}

// Normalize trims whitespace, truncates length-bounded fields and checks
// that the title is present. It returns ErrInvalidProduct when the record
// cannot be stored.
func (p *Product) Normalize() error {
	p.Title = truncate(strings.TrimSpace(p.Title), MaxTitleLength)
	p.Description = truncate(strings.TrimSpace(p.Description), MaxDescriptionLength)
	p.Category = truncate(strings.TrimSpace(p.Category), MaxCategoryLength)
	p.Image = truncate(strings.TrimSpace(p.Image), MaxImageLength)

	if p.Title == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidProduct)
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("%w: negative price %d", ErrInvalidProduct, p.PriceCents)
	}
	return nil
}

// AmountToCents converts a decimal amount to cents, rounding half away from zero.
func AmountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CentsToAmount converts cents to a decimal amount.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// RoundAmount rounds a decimal amount to 2 places.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
