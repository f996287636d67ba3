package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/utils"
)

// RateLimitConfig sizes the per-client token buckets of the query API.
type RateLimitConfig struct {
	Burst      int
	PerMinute  int
	MaxClients int           // idle clients are evicted once this many are tracked
	IdleTTL    time.Duration // a client unseen for this long may be evicted
	TrustProxy bool          // resolve the client from proxy headers when true
	Now        func() time.Time
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type clientLimiter struct {
	cfg     RateLimitConfig
	every   rate.Limit
	mu      sync.Mutex
	clients map[string]*client
}

func newClientLimiter(cfg RateLimitConfig) *clientLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &clientLimiter{
		cfg:     cfg,
		every:   rate.Limit(float64(cfg.PerMinute) / 60),
		clients: make(map[string]*client),
	}
}

func (l *clientLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		if l.cfg.MaxClients > 0 && len(l.clients) >= l.cfg.MaxClients {
			l.evictIdleLocked(now)
		}
		c = &client{lim: rate.NewLimiter(l.every, l.cfg.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.lim
}

func (l *clientLimiter) evictIdleLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.cfg.IdleTTL {
			delete(l.clients, key)
		}
	}
}

// take spends one token of key. When none is left it spends nothing and
// returns how long the client has to wait.
func (l *clientLimiter) take(key string, now time.Time) (wait time.Duration, remaining int) {
	lim := l.limiterFor(key, now)

	res := lim.ReserveN(now, 1)
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return d, 0
	}
	return 0, int(math.Max(0, math.Floor(lim.TokensAt(now))))
}

// RateLimit throttles each client IP. Throttled requests get 429 with Retry-After.
func RateLimit(cfg RateLimitConfig, log logger.Logger) func(http.Handler) http.Handler {
	l := newClientLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, l.cfg.TrustProxy)
			wait, remaining := l.take(key, l.cfg.Now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if wait > 0 {
				retry := int(math.Ceil(wait.Seconds()))
				log.Debug("request throttled",
					logger.String("ip", key),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after_sec", retry))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
