package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Product attributes holding per unit weight and volume.
const (
	AttrWeightKg = "PRODUCT_WEIGHT_KG"
	AttrVolumeM3 = "PRODUCT_VOLUME_M3"
)

type dimension struct {
	suffix string
	amount decimal.Decimal
}

// WeightVolume prices each bucket from weight ({SLA}_KG) and volume
// ({SLA}_M3) price lists and charges the more expensive of the two.
// The {SLA}_KGMAX and {SLA}_M3MAX tiers carry the carrier capacity.
type WeightVolume struct {
	Slas       SlaService
	Policies   PolicyProvider
	Prices     SkuPriceResolver
	Attributes AttributeSource
	Logger     zerolog.Logger
}

// Calculate adds a shipping line to every bucket that can be priced and
// returns the summed cost, or nil when no bucket could be priced.
func (w *WeightVolume) Calculate(ctx context.Context, c *cart.ShoppingCart) (*pricing.Total, error) {
	if len(c.CarrierSlaID) == 0 {
		return nil, nil
	}
	selected, err := selections(ctx, w.Slas, c, SlaWeightVolume, w.Logger)
	if err != nil {
		return nil, err
	}
	var total *pricing.Total
	for _, s := range selected {
		policy, err := policyFor(ctx, w.Policies, c)
		if err != nil {
			return nil, err
		}
		for _, bucket := range s.buckets {
			price, err := w.priceBucket(ctx, c, s, policy, bucket)
			if err != nil {
				return nil, err
			}
			if price == nil {
				w.Logger.Debug().Str("supplier", s.supplier).Str("sla", s.sla.GUID).Str("bucket", bucket.String()).Msg("bucket not priced")
				continue
			}
			list, cost := price.ListPrice, price.Effective()
			c.AddShippingToCart(bucket, s.sla.GUID, s.sla.Label(), one)
			c.SetShippingPrice(s.sla.GUID, bucket, cost, list)

			bucketTotal := pricing.DeliveryTotal(list, cost)
			if total != nil {
				bucketTotal = total.Add(bucketTotal)
			}
			total = &bucketTotal
		}
	}
	return total, nil
}

// priceBucket returns the chosen price tier for bucket, nil when the bucket
// has no measurable dimension, exceeds a capacity tier or is not priced.
func (w *WeightVolume) priceBucket(ctx context.Context, c *cart.ShoppingCart, s supplierSla, policy PricingPolicy, bucket cart.DeliveryBucket) (*SkuPrice, error) {
	weight, volume, err := w.measure(ctx, c.ItemsInBucket(bucket))
	if err != nil {
		return nil, err
	}
	var chosen *SkuPrice
	for _, dim := range []dimension{{"KG", weight}, {"M3", volume}} {
		if !dim.amount.IsPositive() {
			continue
		}
		base := s.sla.GUID + "_" + dim.suffix
		capacity, err := w.Prices.SkuPrice(ctx, c, base+"MAX", policy, s.supplier, money.MaxQuantity)
		if err != nil {
			return nil, fmt.Errorf("capacity %s: %w", base, err)
		}
		if !capacity.Priced() {
			continue
		}
		if capacity.Quantity.LessThan(dim.amount) {
			return nil, nil
		}
		price, err := w.Prices.SkuPrice(ctx, c, base, policy, s.supplier, dim.amount)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", base, err)
		}
		if !price.Priced() {
			return nil, nil
		}
		if chosen == nil || price.Effective().GreaterThan(chosen.Effective()) {
			chosen = price
		}
	}
	return chosen, nil
}

// measure sums weight and volume times quantity. Missing or malformed
// attribute values count as zero.
func (w *WeightVolume) measure(ctx context.Context, items []cart.CartItem) (decimal.Decimal, decimal.Decimal, error) {
	weight, volume := decimal.Zero, decimal.Zero
	for _, item := range items {
		if !item.Qty.IsPositive() {
			continue
		}
		attrs, err := w.Attributes.SkuAttributes(ctx, item.ProductSkuCode)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("attributes of %s: %w", item.ProductSkuCode, err)
		}
		weight = weight.Add(attribute(attrs, AttrWeightKg).Mul(item.Qty))
		volume = volume.Add(attribute(attrs, AttrVolumeM3).Mul(item.Qty))
	}
	return weight, volume, nil
}

func attribute(attrs map[string]string, code string) decimal.Decimal {
	raw := strings.TrimSpace(attrs[code])
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		return decimal.Zero
	}
	return v
}
