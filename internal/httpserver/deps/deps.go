package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/query"
	"github.com/MrSnakeDoc/warmup/internal/scheduler"
)

// Queries is the read side served under /api/products.
type Queries interface {
	Summary(ctx context.Context) (query.Summary, error)
	Status(ctx context.Context) (query.Status, error)
	Stats(ctx context.Context) (query.Stats, error)
	Categories(ctx context.Context) ([]string, error)
	Sample(ctx context.Context) ([]query.SampleItem, error)
}

// Lifecycle reports the host readiness signal.
type Lifecycle interface {
	Mode() domain.Mode
	Readiness() domain.Readiness
}

// Startup exposes the orchestration progress.
type Startup interface {
	Snapshot() scheduler.Snapshot
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS   []string         // IPs allowed to access readyz/metrics endpoints
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateBurst      int              // per-IP burst on /api
	RatePerMinute  int              // per-IP refill on /api
	Queries        Queries
	Lifecycle      Lifecycle
	Startup        Startup
	MetricsHandler http.Handler // nil when metrics are not scraped
}
