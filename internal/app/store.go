package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/warmup/internal/config"
	"github.com/MrSnakeDoc/warmup/internal/connect"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/redis"
	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/store/memory"
	"github.com/MrSnakeDoc/warmup/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/warmup/internal/store/redis"
	"github.com/MrSnakeDoc/warmup/internal/store/sqlite"
)

// openStore connects the configured backend. Network backends go through
// connect.Dial with their own retry policy.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	log = log.With(logger.String("store", cfg.Store))

	switch cfg.Store {
	case config.StoreMemory:
		log.Info("using in-memory store")
		return memory.New(), nil

	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", logger.String("path", cfg.SQLitePath))
		return s, nil

	case config.StorePostgres:
		return postgres.Open(ctx, postgres.ConnectOptions{
			DSN: cfg.PostgresDSN,
			Retry: connect.Policy{
				Timeout:        cfg.PostgresConnectTimeout,
				RetryInterval:  cfg.PostgresRetryInterval,
				MaxWait:        cfg.PostgresMaxWait,
				AttemptTimeout: cfg.PostgresPingTimeout,
				WarnThreshold:  cfg.PostgresWarnThreshold,
			},
		}, log)

	case config.StoreRedis:
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry: connect.Policy{
				Timeout:        cfg.RedisConnectTimeout,
				RetryInterval:  cfg.RedisRetryInterval,
				MaxWait:        cfg.RedisMaxWait,
				AttemptTimeout: cfg.RedisPingTimeout,
				WarnThreshold:  cfg.RedisWarnThreshold,
			},
		}, log)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client), nil

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
