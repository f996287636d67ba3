package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

// Record store backends
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const redacted = "***REDACTED***"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Mode domain.Mode // gate or cooperative

	// Catalog source and health-check ping target
	CatalogURL     string
	CatalogTimeout time.Duration
	PingURL        string
	PingTimeout    time.Duration

	// Sync engine
	PageSize     int
	TargetCount  int
	BatchDelay   time.Duration
	ResetOnStart bool

	// Health checks
	CheckScale float64 // multiplies every step delay, 0 disables them
	ChecksFile string  // optional YAML overriding step delays

	// Record store
	Store       string // memory | sqlite | postgres | redis
	SQLitePath  string
	PostgresDSN string

	PostgresConnectTimeout time.Duration
	PostgresRetryInterval  time.Duration
	PostgresMaxWait        time.Duration
	PostgresPingTimeout    time.Duration
	PostgresWarnThreshold  int

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	StoreReportInterval time.Duration // 0 disables the periodic store size report

	AllowedCIDRS []string // optional, restrict /readyz and /metrics to these IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateLimitBurst     int // requests per IP before throttling
	RateLimitPerMinute int // refill per IP per minute

	// Telemetry
	Metrics       string // prometheus | otlp | off
	Tracing       bool
	OTLPEndpoint  string
	OTLPInsecure  bool
	SamplingRatio float64
}

// Load reads the environment, after merging envFile (or ./.env when empty) into it.
// An explicit envFile that cannot be read is an error; a missing ./.env is not.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	e := &env{}
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("WARMUP_LISTEN_PORT", ":8080"),
		ShutdownTimeout: e.mustDuration("WARMUP_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("WARMUP_LOG_LEVEL", "info"),
		PrettyLog: e.mustBool("WARMUP_PRETTY_LOG", true),

		// Catalog
		CatalogURL:     getenv("WARMUP_CATALOG_URL", "https://api.escuelajs.co/api/v1"),
		CatalogTimeout: e.mustDuration("WARMUP_CATALOG_TIMEOUT", 30*time.Second),
		PingURL:        getenv("WARMUP_PING_URL", "https://httpbin.org/status/200"),
		PingTimeout:    e.mustDuration("WARMUP_PING_TIMEOUT", 10*time.Second),

		// Sync
		PageSize:     e.getenvInt("WARMUP_PAGE_SIZE", 10),
		TargetCount:  e.getenvInt("WARMUP_TARGET_COUNT", 200),
		BatchDelay:   e.mustDuration("WARMUP_BATCH_DELAY", 2*time.Second),
		ResetOnStart: e.mustBool("WARMUP_RESET_ON_START", true),

		// Health checks
		CheckScale: e.mustFloat("WARMUP_CHECK_SCALE", 1.0),
		ChecksFile: getenv("WARMUP_CHECKS_FILE", ""),

		// Store
		Store:                  strings.ToLower(getenv("WARMUP_STORE", StoreMemory)),
		SQLitePath:             getenv("WARMUP_SQLITE_PATH", "warmup.db"),
		PostgresDSN:            getenv("WARMUP_POSTGRES_DSN", ""),
		PostgresConnectTimeout: e.mustDuration("WARMUP_POSTGRES_CONNECT_TIMEOUT", 30*time.Second),
		PostgresRetryInterval:  e.mustDuration("WARMUP_POSTGRES_RETRY_INTERVAL", 2*time.Second),
		PostgresMaxWait:        e.mustDuration("WARMUP_POSTGRES_MAX_WAIT", 10*time.Second),
		PostgresPingTimeout:    e.mustDuration("WARMUP_POSTGRES_PING_TIMEOUT", 5*time.Second),
		PostgresWarnThreshold:  e.getenvInt("WARMUP_POSTGRES_WARN_THRESHOLD", 3),

		// Redis settings
		RedisAddr:             getenv("WARMUP_REDIS_ADDR", ""),
		RedisUser:             getenv("WARMUP_REDIS_USERNAME", "default"),
		RedisPasswordRequired: e.mustBool("WARMUP_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("WARMUP_REDIS_PASSWORD", ""),
		RedisDB:               e.getenvInt("WARMUP_REDIS_DB", 0),
		RedisDT:               e.mustDuration("WARMUP_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               e.mustDuration("WARMUP_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               e.mustDuration("WARMUP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          e.mustDuration("WARMUP_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      e.mustDuration("WARMUP_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         e.getenvInt("WARMUP_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   e.mustDuration("WARMUP_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    e.mustDuration("WARMUP_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    e.getenvInt("WARMUP_REDIS_WARN_THRESHOLD", 3),

		StoreReportInterval: e.mustDuration("WARMUP_STORE_REPORT_INTERVAL", time.Minute),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("WARMUP_ALLOWED_CIDRS", "")),
		TrustProxy:   e.mustBool("WARMUP_TRUST_PROXY", false),

		RateLimitBurst:     e.getenvInt("WARMUP_RATE_LIMIT_BURST", 30),
		RateLimitPerMinute: e.getenvInt("WARMUP_RATE_LIMIT_PER_MINUTE", 120),

		// Telemetry
		Metrics:       strings.ToLower(getenv("WARMUP_METRICS", "prometheus")),
		Tracing:       e.mustBool("WARMUP_TRACING", false),
		OTLPEndpoint:  getenv("WARMUP_OTLP_ENDPOINT", ""),
		OTLPInsecure:  e.mustBool("WARMUP_OTLP_INSECURE", true),
		SamplingRatio: e.mustFloat("WARMUP_TRACE_SAMPLING", 1.0),
	}

	mode, err := domain.ParseMode(getenv("WARMUP_MODE", "cooperative"))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("WARMUP_MODE: %w", err))
	}
	cfg.Mode = mode

	if err := errors.Join(append(e.errs, cfg.Validate())...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("WARMUP_PAGE_SIZE must be > 0, got %d", c.PageSize))
	}
	if c.TargetCount <= 0 {
		errs = append(errs, fmt.Errorf("WARMUP_TARGET_COUNT must be > 0, got %d", c.TargetCount))
	}
	if c.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("WARMUP_BATCH_DELAY must not be negative, got %s", c.BatchDelay))
	}
	if c.CheckScale < 0 || !isFinite(c.CheckScale) {
		errs = append(errs, fmt.Errorf("WARMUP_CHECK_SCALE must be a finite number >= 0, got %v", c.CheckScale))
	}
	if !(c.SamplingRatio >= 0 && c.SamplingRatio <= 1) {
		errs = append(errs, fmt.Errorf("WARMUP_TRACE_SAMPLING must be in [0,1], got %v", c.SamplingRatio))
	}
	if c.CatalogURL == "" {
		errs = append(errs, errors.New("WARMUP_CATALOG_URL is required"))
	}
	if c.PingURL == "" {
		errs = append(errs, errors.New("WARMUP_PING_URL is required"))
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("WARMUP_SQLITE_PATH is required when WARMUP_STORE=sqlite"))
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("WARMUP_POSTGRES_DSN is required when WARMUP_STORE=postgres"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("WARMUP_REDIS_ADDR is required when WARMUP_STORE=redis"))
		}
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			errs = append(errs, errors.New("WARMUP_REDIS_PASSWORD is required when WARMUP_REDIS_PASSWORD_REQUIRED=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown WARMUP_STORE %q (want memory, sqlite, postgres or redis)", c.Store))
	}

	return errors.Join(errs...)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if cp.PostgresDSN != "" {
		cp.PostgresDSN = redacted
	}
	return cp
}

// env collects parse errors so Load can report every bad key at once.
type env struct {
	errs []error
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *env) getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid integer value for %s: %q", key, v))
		return def
	}
	return i
}

func (e *env) mustBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid boolean value for %s: %q", key, v))
		return def
	}
	return b
}

func (e *env) mustDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid duration value for %s: %q", key, v))
		return def
	}
	return d
}

func (e *env) mustFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid float value for %s: %q", key, v))
		return def
	}
	return f
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
