// Package catalog reads pricing reference data (taxes, promotions, carrier
// SLAs, price tiers, inventory and customers) from Postgres and caches the
// shop level lists in Redis.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/availability"
	cachekeys "github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promotion"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/shipping"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ pricing.CustomerResolver       = (*Store)(nil)
	_ tax.RuleSource                 = (*Store)(nil)
	_ promotion.RuleSource           = (*Store)(nil)
	_ shipping.SlaService            = (*Store)(nil)
	_ shipping.PolicyProvider        = (*Store)(nil)
	_ shipping.PriceService          = (*Store)(nil)
	_ shipping.ShopSettings          = (*Store)(nil)
	_ shipping.AttributeSource       = (*Store)(nil)
	_ availability.WarehouseService  = (*Store)(nil)
	_ availability.InventoryResolver = (*Store)(nil)
)

// Store implements the lookup contracts of the pricing engine over Postgres.
// Missing rows are reported as nil results, never as errors.
type Store struct {
	db          DB
	cache       *Cache
	cachePrefix string
	guard       resilience.Guard
	logger      zerolog.Logger
}

// Config groups Store dependencies.
type Config struct {
	DB          DB
	Cache       *Cache
	CachePrefix string
	Guard       resilience.Guard
	Logger      zerolog.Logger
}

// NewStore validates cfg and builds a Store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DB == nil {
		return nil, errors.New("catalog: db is required")
	}
	prefix := cfg.CachePrefix
	if prefix == "" {
		prefix = "catalog"
	}
	return &Store{
		db:          cfg.DB,
		cache:       cfg.Cache,
		cachePrefix: prefix,
		guard:       cfg.Guard,
		logger:      cfg.Logger,
	}, nil
}

// query runs fn through the breaker guard.
func query[T any](ctx context.Context, s *Store, fn func(context.Context) (T, error)) (T, error) {
	return resilience.Call(ctx, s.guard, fn)
}

// cached serves key from the cache, loading and storing it on a miss. Cache
// failures are logged and fall through to load.
func cached[T any](ctx context.Context, s *Store, key string, load func(context.Context) (T, error)) (T, error) {
	var hit T
	ok, err := s.cache.GetJSON(ctx, key, &hit)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if ok && err == nil {
		return hit, nil
	}
	started := time.Now()
	v, err := query(ctx, s, load)
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	s.logger.Debug().Str("key", key).Dur("took", time.Since(started)).Msg("catalog cache filled")
	return v, nil
}

// Invalidate drops the cached tax and promotion lists of a shop and currency.
func (s *Store) Invalidate(ctx context.Context, shopCode, currency string) error {
	return s.cache.Delete(ctx,
		cachekeys.KeyTaxRules(s.cachePrefix, shopCode, currency),
		cachekeys.KeyPromotions(s.cachePrefix, shopCode, currency),
	)
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Numeric columns are selected as text and parsed here so no driver
// specific decimal codec is needed.
func numeric(col, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", col, value, err)
	}
	return d, nil
}

func nullNumeric(col string, value *string) (decimal.NullDecimal, error) {
	if value == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := numeric(col, *value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
