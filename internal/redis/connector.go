package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/warmup/internal/connect"
	"github.com/MrSnakeDoc/warmup/internal/logger"
)

// ConnectOptions configures the Redis client backing the record store.
type ConnectOptions struct {
	Addr         string // ex: "localhost:6379"
	User         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	Retry        connect.Policy
}

// New returns a client once Redis answers a PING. The first pings are
// retried under opts.Retry; the client is closed when they all fail.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	_, err := connect.Dial(ctx, "redis", opts.Retry,
		log.With(logger.String("addr", opts.Addr)),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, client.Ping(ctx).Err()
		})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
