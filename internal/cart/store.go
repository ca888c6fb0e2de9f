package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Store keeps cart snapshots in Redis keyed by session token.
type Store struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
	Now    func() time.Time
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) key(token string) string {
	if s.Prefix == "" {
		return "cart:" + token
	}
	return s.Prefix + ":cart:" + token
}

// Load restores the cart saved under token.
func (s *Store) Load(ctx context.Context, token string) (*ShoppingCart, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("cart store not configured")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("token is required: %w", ErrInvalidInput)
	}
	data, err := s.R.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var c ShoppingCart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.CarrierSlaID == nil {
		c.CarrierSlaID = map[string]int64{}
	}
	c.SetClock(s.now)
	return &c, nil
}

// LoadOrCreate restores the cart under token or starts a new one from sc.
func (s *Store) LoadOrCreate(ctx context.Context, token, currency string, sc ShoppingContext) (*ShoppingCart, error) {
	c, err := s.Load(ctx, token)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return New(currency, sc, WithClock(s.now)), nil
}

// Save stores the cart under token and refreshes its expiry.
func (s *Store) Save(ctx context.Context, token string, c *ShoppingCart) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	if c == nil || strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.R.Set(ctx, s.key(token), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the cart stored under token.
func (s *Store) Delete(ctx context.Context, token string) error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	return s.R.Del(ctx, s.key(token)).Err()
}
