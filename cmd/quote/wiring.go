package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/availability"
	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/cart/command"
	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/events"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promotion"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/session"
	"github.com/noah-isme/toko-pricing/internal/shipping"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

// app holds the wired session service and the resources to release.
type app struct {
	session *session.Service
	health  health.Prober
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "toko-pricing"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger zerolog.Logger) (*app, error) {
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.CalculationBuckets), reg)
	resilience.MustRegisterMetrics(reg)

	a := &app{}
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := connectPostgres(connectCtx, cfg)
	if err != nil {
		return nil, unavailable(err)
	}
	a.closers = append(a.closers, pool.Close)

	rdb, err := connectRedis(connectCtx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, unavailable(err)
	}
	a.closers = append(a.closers, func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	})

	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("catalog").
		WithLogger(logger)
	store, err := catalog.NewStore(catalog.Config{
		DB:          pool,
		Cache:       catalog.NewCache(rdb, cfg.CatalogCacheTTL),
		CachePrefix: cfg.CatalogCachePrefix,
		Guard: resilience.Guard{
			Breaker:     breaker,
			BaseBackoff: 50 * time.Millisecond,
			MaxAttempts: cfg.DBMaxAttempts,
			Jitter:      0.2,
			Timeout:     cfg.DBQueryTimeout,
		},
		Logger: logger.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	delivery, err := shipping.New(cfg.DeliveryStrategies, shipping.Deps{
		Slas:       store,
		Policies:   store,
		Prices:     store,
		Shops:      store,
		Attributes: store,
		Logger:     logger.With().Str("component", "delivery").Logger(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	registry := availability.NewRegistry(&availability.Default{
		Warehouses: store,
		Inventory:  store,
		Logger:     logger.With().Str("component", "availability").Logger(),
	})
	for shopID, name := range cfg.AvailabilityOverrides {
		strategy, err := availability.ByName(name, nil)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("shop %d: %w", shopID, err)
		}
		registry.Register(shopID, strategy)
	}

	calculator := pricing.NewCalculator(
		tax.NewDefaultProvider(store, logger.With().Str("component", "tax").Logger()),
		delivery,
		&promotion.Factory{Rules: store, Now: time.Now, Logger: logger.With().Str("component", "promotion").Logger()},
		store,
		logger.With().Str("component", "pricing").Logger(),
	)

	bus := &events.Bus{
		Store:     events.RedisStream{R: rdb, Stream: cfg.EventStream, MaxLen: cfg.EventStreamMaxLen},
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger.With().Str("component", "events").Logger()}},
	}

	limiter := ratelimit.Limiter{
		Client: rdb,
		Prefix: cfg.CartPrefix + ":rl:",
		Window: cfg.CommandRateWindow,
		Max:    cfg.CommandRateLimit,
	}

	a.session = &session.Service{
		Locker: lock.Locker{
			R:            rdb,
			Prefix:       cfg.CartPrefix,
			RetryBackoff: cfg.LockRetryBackoff,
			MaxWait:      cfg.LockMaxWait,
		},
		Store:      &cart.Store{R: rdb, Prefix: cfg.CartPrefix, TTL: cfg.CartTTL},
		Commands:   command.NewDispatcher(registry, store, store, logger.With().Str("component", "command").Logger()),
		Calculator: calculator,
		Events:     bus,
		Limiter:    limiter,
		LockTTL:    cfg.LockTTL,
		Logger:     logger.With().Str("component", "session").Logger(),
	}
	a.health = health.Prober{
		Timeout: 500 * time.Millisecond,
		Checks: []health.Check{
			{Name: "db", Ping: pool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
			{Name: "catalog_breaker", Ping: func(context.Context) error {
				if breaker.State() == resilience.Open {
					return resilience.ErrOpenCircuit
				}
				return nil
			}},
		},
	}
	return a, nil
}

func unavailable(err error) error {
	return common.NewAppError("DEPENDENCY_UNAVAILABLE", "dependency unavailable", common.ExitUnavailable, err)
}
