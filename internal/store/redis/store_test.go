package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/store/storetest"
)

// TestRedisStore flushes the selected database.
// Set WARMUP_TEST_REDIS_ADDR to a disposable instance to run it.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("WARMUP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WARMUP_TEST_REDIS_ADDR not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		return NewStore(client)
	})
}

func TestKeysShareNamespace(t *testing.T) {
	for _, key := range []string{ProductsKey(), SeqKey(), LatestUpdateKey()} {
		if len(key) <= len(KeyPrefix) || key[:len(KeyPrefix)] != KeyPrefix {
			t.Errorf("key %q is outside the %q namespace", key, KeyPrefix)
		}
	}
}
