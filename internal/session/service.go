// Package session runs cart commands and pricing for one shopper at a time,
// persisting the cart between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/cart/command"
	"github.com/noah-isme/toko-pricing/internal/events"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
)

// ErrRateLimited is returned when a token sends commands faster than its budget.
var ErrRateLimited = errors.New("too many cart commands")

// Locker serialises work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// CartStore persists carts by session token.
type CartStore interface {
	Load(ctx context.Context, token string) (*cart.ShoppingCart, error)
	LoadOrCreate(ctx context.Context, token, currency string, sc cart.ShoppingContext) (*cart.ShoppingCart, error)
	Save(ctx context.Context, token string, c *cart.ShoppingCart) error
}

// Executor applies cart commands.
type Executor interface {
	Execute(ctx context.Context, c *cart.ShoppingCart, cmd command.Command) (bool, error)
}

// Pricer prices a whole cart.
type Pricer interface {
	CalculateCart(ctx context.Context, c *cart.ShoppingCart) (pricing.Total, error)
}

// RateLimiter budgets the command batches of a key.
type RateLimiter interface {
	Take(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Emitter records domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Priced is the payload of cart events.
type Priced struct {
	CartGuid    string `json:"cartGuid"`
	ShopCode    string `json:"shopCode"`
	Currency    string `json:"currency"`
	Items       string `json:"items"`
	TotalAmount string `json:"totalAmount"`
	TotalTax    string `json:"totalTax"`
	Changed     bool   `json:"changed"`
}

// Service owns the cart of a session token for the duration of a request.
type Service struct {
	Locker     Locker
	Store      CartStore
	Commands   Executor
	Calculator Pricer
	Events     Emitter
	Limiter    RateLimiter
	LockTTL    time.Duration
	Logger     zerolog.Logger
}

// Start describes the cart created when a token has none yet.
type Start struct {
	Currency string
	Context  cart.ShoppingContext
}

// Result is the priced cart after a request.
type Result struct {
	Cart    *cart.ShoppingCart `json:"cart"`
	Total   pricing.Total      `json:"total"`
	Changed bool               `json:"changed"`
}

// Apply executes cmds in order on the cart of token, prices it and saves
// it. The first failing command aborts the request and nothing is saved.
func (s *Service) Apply(ctx context.Context, token string, start Start, cmds ...command.Command) (Result, error) {
	if strings.TrimSpace(token) == "" {
		return Result{}, fmt.Errorf("token is required: %w", cart.ErrInvalidInput)
	}
	if s.Limiter != nil && len(cmds) > 0 {
		d, err := s.Limiter.Take(ctx, "cart:"+token)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !d.Allowed {
			return Result{}, fmt.Errorf("%w: retry after %s", ErrRateLimited, d.Reset.Format(time.RFC3339))
		}
	}
	var res Result
	err := s.Locker.WithLock(ctx, "cart:"+token, s.LockTTL, func(ctx context.Context) error {
		c, err := s.Store.LoadOrCreate(ctx, token, start.Currency, start.Context)
		if err != nil {
			return err
		}
		for i, cmd := range cmds {
			changed, err := s.Commands.Execute(ctx, c, cmd)
			if err != nil {
				return fmt.Errorf("command %d: %w", i, err)
			}
			res.Changed = res.Changed || changed
		}
		res.Cart = c
		return s.priceAndSave(ctx, token, &res)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Quote re-prices the stored cart of token.
func (s *Service) Quote(ctx context.Context, token string) (Result, error) {
	var res Result
	err := s.Locker.WithLock(ctx, "cart:"+token, s.LockTTL, func(ctx context.Context) error {
		c, err := s.Store.Load(ctx, token)
		if err != nil {
			return err
		}
		res.Cart = c
		return s.priceAndSave(ctx, token, &res)
	})
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("quote cart: %w", err)
	}
	return res, nil
}

func (s *Service) priceAndSave(ctx context.Context, token string, res *Result) error {
	total, err := s.Calculator.CalculateCart(ctx, res.Cart)
	if err != nil {
		return err
	}
	res.Total = total
	if err := s.Store.Save(ctx, token, res.Cart); err != nil {
		return err
	}
	s.Logger.Info().
		Str("cart_guid", res.Cart.Guid).
		Str("shop", res.Cart.Context.ShopCode).
		Str("total", total.TotalAmount.StringFixed(2)).
		Bool("changed", res.Changed).
		Msg("cart priced")
	s.emit(ctx, token, res)
	return nil
}

// emit publishes the priced cart. The cart is already saved, so failures
// are only logged.
func (s *Service) emit(ctx context.Context, token string, res *Result) {
	if s.Events == nil {
		return
	}
	topic := events.TopicCartQuoted
	if res.Changed {
		topic = events.TopicCartUpdated
	}
	_, err := s.Events.Emit(ctx, topic, token, Priced{
		CartGuid:    res.Cart.Guid,
		ShopCode:    res.Cart.Context.ShopCode,
		Currency:    res.Cart.CurrencyCode,
		Items:       res.Cart.CartItemsCount().String(),
		TotalAmount: res.Total.TotalAmount.StringFixed(2),
		TotalTax:    res.Total.TotalTax.StringFixed(2),
		Changed:     res.Changed,
	})
	if err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("emit cart event")
	}
}
