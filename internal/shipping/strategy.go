package shipping

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cart"
)

// supplierSla is a supplier whose cart lines ship with an SLA of the
// requested type.
type supplierSla struct {
	supplier string
	sla      CarrierSla
	buckets  []cart.DeliveryBucket
}

// selections lists the suppliers with an SLA of slaType and at least one
// bucket in the cart. Suppliers are visited in sorted order.
func selections(ctx context.Context, slas SlaService, c *cart.ShoppingCart, slaType SlaType, logger zerolog.Logger) ([]supplierSla, error) {
	buckets := c.Buckets()
	var out []supplierSla
	for _, supplier := range c.CarrierSlaSuppliers() {
		var own []cart.DeliveryBucket
		for _, bucket := range buckets {
			if bucket.Supplier == supplier {
				own = append(own, bucket)
			}
		}
		if len(own) == 0 {
			continue
		}
		id := c.CarrierSlaID[supplier]
		sla, err := slas.CarrierSlaByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load carrier sla %d: %w", id, err)
		}
		if sla == nil {
			logger.Debug().Str("supplier", supplier).Int64("sla", id).Msg("carrier sla not found")
			continue
		}
		if sla.Type != slaType {
			continue
		}
		out = append(out, supplierSla{supplier: supplier, sla: *sla, buckets: own})
	}
	return out, nil
}

func policyFor(ctx context.Context, policies PolicyProvider, c *cart.ShoppingCart) (PricingPolicy, error) {
	if policies == nil {
		return DefaultPolicy, nil
	}
	sc := c.Context
	policy, err := policies.DeterminePricingPolicy(ctx, sc.ShopCode, c.CurrencyCode, c.CustomerEmail(), sc.CountryCode, sc.StateCode)
	if err != nil {
		return PricingPolicy{}, fmt.Errorf("determine pricing policy: %w", err)
	}
	return policy, nil
}
