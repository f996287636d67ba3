package sqlite

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "products.db"))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		return s
	})
}

func TestBucketQuery(t *testing.T) {
	query, args := bucketQuery([]int64{1000, 5000})

	if !strings.Contains(query, "WHEN price_cents <= ? THEN 0") ||
		!strings.Contains(query, "WHEN price_cents <= ? THEN 1") ||
		!strings.Contains(query, "ELSE 2 END") {
		t.Errorf("unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != int64(1000) || args[1] != int64(5000) {
		t.Errorf("unexpected args: %v", args)
	}
}
