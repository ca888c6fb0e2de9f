package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Cache keeps catalog lookups as JSON documents in Redis. A nil Cache, a nil
// client or a non-positive TTL turns every call into a miss.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCache returns a cache storing entries for ttl.
func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON decodes the entry stored under key into dst and reports a hit.
// An entry that no longer decodes is dropped and counted as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		obs.ObserveCatalogCache("miss")
		return false, nil
	case err != nil:
		obs.ObserveCatalogCache("error")
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		obs.ObserveCatalogCache("error")
		_ = c.client.Del(ctx, key).Err()
		return false, err
	}
	obs.ObserveCatalogCache("hit")
	return true, nil
}

// SetJSON stores v under key for the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Delete removes keys; missing keys are ignored.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
