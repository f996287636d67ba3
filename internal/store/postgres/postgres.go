package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrSnakeDoc/warmup/internal/connect"
	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/store"
)

// productRow is the products table
type productRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"size:1000"`
	Category    string    `gorm:"size:100;index"`
	PriceCents  int64     `gorm:"not null"`
	Image       string    `gorm:"size:500"`
	Rating      float64   `gorm:"not null;default:0"`
	RatingCount int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null;index"`
}

func (productRow) TableName() string { return "products" }

func toRow(p domain.Product) productRow {
	return productRow{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		PriceCents:  p.PriceCents,
		Image:       p.Image,
		Rating:      p.Rating,
		RatingCount: p.RatingCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		PriceCents:  r.PriceCents,
		Image:       r.Image,
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ConnectOptions controls the initial connection attempts.
type ConnectOptions struct {
	DSN   string
	Retry connect.Policy
}

// Store persists products in Postgres through gorm. Each batch runs in one transaction.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects under opts.Retry and migrates the products table.
func Open(ctx context.Context, opts ConnectOptions, log logger.Logger) (*Store, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres DSN is empty")
	}

	db, err := connect.Dial(ctx, "postgres", opts.Retry, log,
		func(ctx context.Context) (*gorm.DB, error) {
			db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			if err != nil {
				return nil, err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return nil, connect.Permanent(err)
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
			return db, nil
		})
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&productRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate products table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) InsertBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]productRow, len(products))
	for i, p := range products {
		rows[i] = toRow(p)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&rows, len(rows)).Error; err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		return nil
	})
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&productRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.WithContext(ctx).Model(&productRow{}).
		Group("category").Order(`category COLLATE "C"`).Pluck("category", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	return names, nil
}

func (s *Store) AveragePrice(ctx context.Context) (float64, error) {
	var avg *float64
	err := s.db.WithContext(ctx).Model(&productRow{}).
		Select("AVG(price_cents)").Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average prices: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (s *Store) CategoryAverages(ctx context.Context) ([]store.CategoryAggregate, error) {
	var rows []struct {
		Category          string
		Count             int64
		AveragePriceCents float64
	}
	err := s.db.WithContext(ctx).Model(&productRow{}).
		Select("category, COUNT(*) AS count, AVG(price_cents) AS average_price_cents").
		Group("category").
		Order(`count DESC, category COLLATE "C" ASC`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group categories: %w", err)
	}

	out := make([]store.CategoryAggregate, len(rows))
	for i, r := range rows {
		out[i] = store.CategoryAggregate{Category: r.Category, Count: r.Count, AveragePriceCents: r.AveragePriceCents}
	}
	return out, nil
}

func (s *Store) PriceRangeCounts(ctx context.Context, bounds []int64) ([]int64, error) {
	var b strings.Builder
	args := make([]any, 0, len(bounds))
	b.WriteString("SELECT CASE")
	for i, bound := range bounds {
		fmt.Fprintf(&b, " WHEN price_cents <= ? THEN %d", i)
		args = append(args, bound)
	}
	fmt.Fprintf(&b, " ELSE %d END AS bucket, COUNT(*) AS n FROM products GROUP BY 1", len(bounds))

	var rows []struct {
		Bucket int
		N      int64
	}
	if err := s.db.WithContext(ctx).Raw(b.String(), args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count price ranges: %w", err)
	}

	counts := make([]int64, len(bounds)+1)
	for _, r := range rows {
		if r.Bucket >= 0 && r.Bucket < len(counts) {
			counts[r.Bucket] = r.N
		}
	}
	return counts, nil
}

func (s *Store) LatestUpdate(ctx context.Context) (time.Time, bool, error) {
	var latest *time.Time
	err := s.db.WithContext(ctx).Model(&productRow{}).
		Select("MAX(updated_at)").Scan(&latest).Error
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read latest update: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

func (s *Store) Sample(ctx context.Context, n int) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("id").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sample products: %w", err)
	}
	out := make([]domain.Product, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM products").Error; err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
