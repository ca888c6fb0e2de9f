package shipping

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

var one = decimal.NewFromInt(1)

// Free ships at no cost. The SLA still needs a price record in the
// shopper's region; the record only marks the SLA as offered there.
type Free struct {
	Slas     SlaService
	Policies PolicyProvider
	Prices   SkuPriceResolver
	Logger   zerolog.Logger
}

// Calculate adds a zero priced shipping line to every bucket of each
// supplier with a FREE SLA. It returns nil when no supplier qualified.
func (f *Free) Calculate(ctx context.Context, c *cart.ShoppingCart) (*pricing.Total, error) {
	if len(c.CarrierSlaID) == 0 {
		return nil, nil
	}
	selected, err := selections(ctx, f.Slas, c, SlaFree, f.Logger)
	if err != nil {
		return nil, err
	}
	var total *pricing.Total
	for _, s := range selected {
		policy, err := policyFor(ctx, f.Policies, c)
		if err != nil {
			return nil, err
		}
		price, err := f.Prices.SkuPrice(ctx, c, s.sla.GUID, policy, s.supplier, one)
		if err != nil {
			return nil, fmt.Errorf("free delivery for %s: %w", s.supplier, err)
		}
		if !price.Priced() {
			f.Logger.Debug().Str("supplier", s.supplier).Str("sla", s.sla.GUID).Msg("sla not priced in region")
			continue
		}
		for _, bucket := range s.buckets {
			c.AddShippingToCart(bucket, s.sla.GUID, s.sla.Label(), one)
			c.SetShippingPrice(s.sla.GUID, bucket, money.Zero, money.Zero)
		}
		zero := pricing.DeliveryTotal(money.Zero, money.Zero)
		total = &zero
	}
	return total, nil
}
