package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
)

// SkuPriceResolver resolves the price of a carrier SKU code for a cart.
type SkuPriceResolver interface {
	SkuPrice(ctx context.Context, c *cart.ShoppingCart, code string, policy PricingPolicy, supplier string, qty decimal.Decimal) (*SkuPrice, error)
}

// RegionalPriceResolver prefers state, then country specific prices over
// the base SLA price: {CODE}_{COUNTRY}_{STATE}, {CODE}_{COUNTRY}, {CODE}.
type RegionalPriceResolver struct {
	Prices PriceService
	Shops  ShopSettings
}

// SkuPrice returns the first priced match, or the base code lookup result.
func (r *RegionalPriceResolver) SkuPrice(ctx context.Context, c *cart.ShoppingCart, code string, policy PricingPolicy, supplier string, qty decimal.Decimal) (*SkuPrice, error) {
	country := strings.TrimSpace(c.Context.CountryCode)
	state := strings.TrimSpace(c.Context.StateCode)
	var candidates []string
	if country != "" && state != "" {
		candidates = append(candidates, code+"_"+country+"_"+state)
	}
	if country != "" {
		candidates = append(candidates, code+"_"+country)
	}
	for _, candidate := range candidates {
		price, err := r.minimalPrice(ctx, c, candidate, policy, supplier, qty)
		if err != nil {
			return nil, err
		}
		if price.Priced() {
			return price, nil
		}
	}
	return r.minimalPrice(ctx, c, code, policy, supplier, qty)
}

func (r *RegionalPriceResolver) minimalPrice(ctx context.Context, c *cart.ShoppingCart, code string, policy PricingPolicy, supplier string, qty decimal.Decimal) (*SkuPrice, error) {
	fallback, err := r.fallbackShop(ctx, c.Context)
	if err != nil {
		return nil, err
	}
	price, err := r.Prices.MinimalPrice(ctx, PriceQuery{
		SkuCode:        code,
		ShopID:         c.Context.EffectiveCustomerShopID(),
		FallbackShopID: fallback,
		Currency:       c.CurrencyCode,
		Quantity:       qty,
		PolicyID:       policy.ID,
		Supplier:       supplier,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve price %s: %w", code, err)
	}
	return price, nil
}

// fallbackShop is the master shop for B2B sub shops that do not enforce
// strict pricing, zero otherwise.
func (r *RegionalPriceResolver) fallbackShop(ctx context.Context, sc cart.ShoppingContext) (int64, error) {
	customerShop := sc.EffectiveCustomerShopID()
	if customerShop == sc.ShopID {
		return 0, nil
	}
	if r.Shops == nil {
		return sc.ShopID, nil
	}
	strict, err := r.Shops.B2BStrictPriceActive(ctx, customerShop)
	if err != nil {
		return 0, fmt.Errorf("shop %d settings: %w", customerShop, err)
	}
	if strict {
		return 0, nil
	}
	return sc.ShopID, nil
}
