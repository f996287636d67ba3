package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/store"
)

var schema = []string{
	`PRAGMA journal_mode=WAL`,
	`PRAGMA busy_timeout=5000`,
	`CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	rating REAL NOT NULL DEFAULT 0,
	rating_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
}

// Store persists products in a SQLite database. Each batch is one transaction.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open creates (or opens) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// single writer connection keeps batch commits serialized
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialise schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) InsertBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products
		(title, description, category, price_cents, image, rating, rating_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx,
			p.Title, p.Description, p.Category, p.PriceCents, p.Image,
			p.Rating, p.RatingCount, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert product %q: %w", p.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) AveragePrice(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(price_cents) FROM products`).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to average prices: %w", err)
	}
	return avg.Float64, nil
}

func (s *Store) CategoryAverages(ctx context.Context) ([]store.CategoryAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) AS n, AVG(price_cents)
		FROM products GROUP BY category ORDER BY n DESC, category ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to group categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []store.CategoryAggregate{}
	for rows.Next() {
		var agg store.CategoryAggregate
		if err := rows.Scan(&agg.Category, &agg.Count, &agg.AveragePriceCents); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (s *Store) PriceRangeCounts(ctx context.Context, bounds []int64) ([]int64, error) {
	query, args := bucketQuery(bounds)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count price ranges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make([]int64, len(bounds)+1)
	for rows.Next() {
		var bucket int
		var n int64
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, err
		}
		if bucket >= 0 && bucket < len(counts) {
			counts[bucket] = n
		}
	}
	return counts, rows.Err()
}

// bucketQuery builds a CASE expression mapping price_cents to bucket indexes.
func bucketQuery(bounds []int64) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(bounds))
	b.WriteString("SELECT CASE")
	for i, bound := range bounds {
		fmt.Fprintf(&b, " WHEN price_cents <= ? THEN %d", i)
		args = append(args, bound)
	}
	fmt.Fprintf(&b, " ELSE %d END AS bucket, COUNT(*) FROM products GROUP BY bucket", len(bounds))
	return b.String(), args
}

func (s *Store) LatestUpdate(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM products`).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read latest update: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, latest.Int64).UTC(), true, nil
}

func (s *Store) Sample(ctx context.Context, n int) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, category, price_cents, image,
		rating, rating_count, created_at, updated_at FROM products ORDER BY id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to sample products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		var created, updated int64
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.PriceCents, &p.Image,
			&p.Rating, &p.RatingCount, &created, &updated); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(0, created).UTC()
		p.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
