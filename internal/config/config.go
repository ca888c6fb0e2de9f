package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	DatabaseURL string
	RedisURL    string

	CartTTL          time.Duration
	CartPrefix       string
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
	LockMaxWait      time.Duration

	CatalogCacheTTL     time.Duration
	CatalogCachePrefix  string
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	DBMaxAttempts       int
	DBQueryTimeout      time.Duration

	LogFormat             string
	LogLevel              string
	EnableTracing         bool
	OTLPEndpoint          string
	TracingExporter       string
	TracingSamplingRatio  float64
	MetricsNamespace      string
	CalculationBuckets    string
	DeliveryStrategies    []string
	AvailabilityOverrides map[int64]string
	EventStream           string
	EventStreamMaxLen     int64
	CommandRateLimit      int
	CommandRateWindow     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	overrides, err := parseOverrides(k.String("AVAILABILITY_SHOP_OVERRIDES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),

		CartTTL:          parseDuration(k.String("CART_TTL"), "168h"),
		CartPrefix:       valueOrDefault(k.String("CART_PREFIX"), "pricing"),
		LockTTL:          parseDuration(k.String("LOCK_TTL"), "10s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		LockMaxWait:      parseDuration(k.String("LOCK_MAX_WAIT"), "5s"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogCachePrefix:  valueOrDefault(k.String("CATALOG_CACHE_PREFIX"), "catalog"),
		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 10),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		DBMaxAttempts:       parseInt(k.String("DB_MAX_ATTEMPTS"), 2),
		DBQueryTimeout:      parseDuration(k.String("DB_QUERY_TIMEOUT"), "2s"),

		LogFormat:             valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:              valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		EnableTracing:         parseBool(k.String("OBS_ENABLE_TRACING")),
		OTLPEndpoint:          strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingExporter:       strings.ToLower(valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp")),
		TracingSamplingRatio:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		MetricsNamespace:      valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko_pricing"),
		CalculationBuckets:    k.String("OBS_CALC_BUCKETS"),
		DeliveryStrategies:    splitAndTrim(valueOrDefault(k.String("DELIVERY_STRATEGIES"), "free,weight_volume")),
		AvailabilityOverrides: overrides,
		EventStream:           valueOrDefault(k.String("EVENT_STREAM"), "pricing:events"),
		EventStreamMaxLen:     int64(parseInt(k.String("EVENT_STREAM_MAXLEN"), 10000)),
		CommandRateLimit:      parseInt(k.String("COMMAND_RATE_LIMIT"), 120),
		CommandRateWindow:     parseDuration(k.String("COMMAND_RATE_WINDOW"), "1m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.BreakerFailureRatio <= 0 || cfg.BreakerFailureRatio > 1 {
		return nil, fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", cfg.BreakerFailureRatio)
	}

	return cfg, nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// parseOverrides reads "shopID=strategy" pairs separated by commas.
func parseOverrides(value string) (map[int64]string, error) {
	out := map[int64]string{}
	for _, pair := range splitAndTrim(value) {
		id, name, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("AVAILABILITY_SHOP_OVERRIDES: %q is not shop=strategy", pair)
		}
		shopID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil || shopID <= 0 {
			return nil, fmt.Errorf("AVAILABILITY_SHOP_OVERRIDES: invalid shop id %q", id)
		}
		out[shopID] = strings.ToLower(strings.TrimSpace(name))
	}
	return out, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
