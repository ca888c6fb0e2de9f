package shipping_test

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type fakeSlas map[int64]*shipping.CarrierSla

func (f fakeSlas) CarrierSlaByID(_ context.Context, id int64) (*shipping.CarrierSla, error) {
	if id == 666 {
		return nil, errors.New("sla store down")
	}
	return f[id], nil
}

type fakePolicies struct {
	calls []string
}

func (f *fakePolicies) DeterminePricingPolicy(_ context.Context, shopCode, currency, email, country, state string) (shipping.PricingPolicy, error) {
	f.calls = append(f.calls, shopCode+"|"+currency+"|"+email+"|"+country+"|"+state)
	return shipping.PricingPolicy{ID: "P1"}, nil
}

type fakePrices struct {
	prices  map[string]*shipping.SkuPrice
	queries []shipping.PriceQuery
}

func (f *fakePrices) MinimalPrice(_ context.Context, q shipping.PriceQuery) (*shipping.SkuPrice, error) {
	f.queries = append(f.queries, q)
	if p, ok := f.prices[q.SkuCode]; ok {
		return p, nil
	}
	return &shipping.SkuPrice{SkuCode: q.SkuCode}, nil
}

func (f *fakePrices) codes() []string {
	out := make([]string, 0, len(f.queries))
	for _, q := range f.queries {
		out = append(out, q.SkuCode)
	}
	return out
}

type fakeShops map[int64]bool

func (f fakeShops) B2BStrictPriceActive(_ context.Context, shopID int64) (bool, error) {
	return f[shopID], nil
}

type fakeAttributes map[string]map[string]string

func (f fakeAttributes) SkuAttributes(_ context.Context, sku string) (map[string]string, error) {
	return f[sku], nil
}

func price(id int64, qty, list string, sale string) *shipping.SkuPrice {
	p := &shipping.SkuPrice{SkuPriceID: id, Quantity: dec(qty), ListPrice: dec(list)}
	if sale != "" {
		p.SalePrice = money.Of(dec(sale))
	}
	return p
}

func newCart() *cart.ShoppingCart {
	c := cart.New("EUR", cart.ShoppingContext{
		ShopID:        10,
		ShopCode:      "SHOP10",
		CountryCode:   "GB",
		StateCode:     "GB-CAM",
		CustomerEmail: "bob@doe.com",
	})
	c.AddProductSkuToCart("Main", "A-001", "Item 1", dec("2"))
	c.AddProductSkuToCart("Main", "A-002", "Item 2", dec("1"))
	return c
}
