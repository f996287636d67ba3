package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/store"
)

// Store keeps products in a Redis list. A batch is pushed with a single
// RPUSH inside MULTI/EXEC, so LLEN and LRANGE never see half of it. The
// newest UpdatedAt is kept beside the list and only ever moves forward.
type Store struct {
	client *redis.Client
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// InsertBatch reserves an ID range then commits the encoded batch
func (s *Store) InsertBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	last, err := s.client.IncrBy(ctx, SeqKey(), int64(len(products))).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve product ids: %w", err)
	}
	first := last - int64(len(products)) + 1

	var latest time.Time
	values := make([]any, 0, len(products))
	for i, p := range products {
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
		p.ID = first + int64(i)
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal product %q: %w", p.Title, err)
		}
		values = append(values, data)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, ProductsKey(), values...)
		pipe.ZAddGT(ctx, LatestUpdateKey(), redis.Z{Score: float64(latest.UnixMicro()), Member: latestUpdateMember})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, ProductsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, p := range products {
		seen[p.Category] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) AveragePrice(ctx context.Context) (float64, error) {
	products, err := s.all(ctx)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, nil
	}

	var sum int64
	for _, p := range products {
		sum += p.PriceCents
	}
	return float64(sum) / float64(len(products)), nil
}

func (s *Store) CategoryAverages(ctx context.Context) ([]store.CategoryAggregate, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	sums := []int64{}
	out := []store.CategoryAggregate{}
	for _, p := range products {
		i, ok := index[p.Category]
		if !ok {
			i = len(out)
			index[p.Category] = i
			out = append(out, store.CategoryAggregate{Category: p.Category})
			sums = append(sums, 0)
		}
		out[i].Count++
		sums[i] += p.PriceCents
	}
	for i := range out {
		out[i].AveragePriceCents = float64(sums[i]) / float64(out[i].Count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) PriceRangeCounts(ctx context.Context, bounds []int64) ([]int64, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]int64, len(bounds)+1)
	for _, p := range products {
		counts[store.Bucket(p.PriceCents, bounds)]++
	}
	return counts, nil
}

func (s *Store) LatestUpdate(ctx context.Context) (time.Time, bool, error) {
	score, err := s.client.ZScore(ctx, LatestUpdateKey(), latestUpdateMember).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read latest update: %w", err)
	}
	return time.UnixMicro(int64(score)).UTC(), true, nil
}

func (s *Store) Sample(ctx context.Context, n int) ([]domain.Product, error) {
	if n <= 0 {
		return []domain.Product{}, nil
	}
	return s.lrange(ctx, 0, int64(n-1))
}

// DeleteAll drops the list together with the ID counter
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.client.Del(ctx, ProductsKey(), SeqKey(), LatestUpdateKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) all(ctx context.Context) ([]domain.Product, error) {
	return s.lrange(ctx, 0, -1)
}

func (s *Store) lrange(ctx context.Context, start, stop int64) ([]domain.Product, error) {
	raw, err := s.client.LRange(ctx, ProductsKey(), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	products := make([]domain.Product, 0, len(raw))
	for _, item := range raw {
		var p domain.Product
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}
