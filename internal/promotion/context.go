// Package promotion evaluates item, gift, order and shipping promotions
// for a shop and currency.
package promotion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// RuleSource loads the promotions active in a shop and currency.
type RuleSource interface {
	PromotionRules(ctx context.Context, shopCode, currency string) ([]Rule, error)
}

// Factory builds promotion contexts from a RuleSource.
type Factory struct {
	Rules  RuleSource
	Now    func() time.Time
	Logger zerolog.Logger
}

// Instance loads the rules for shopCode and currency.
func (f *Factory) Instance(ctx context.Context, shopCode, currency string) (pricing.PromotionContext, error) {
	if f == nil || f.Rules == nil {
		return NewContext(nil, nil), nil
	}
	rules, err := f.Rules.PromotionRules(ctx, shopCode, currency)
	if err != nil {
		return nil, fmt.Errorf("load promotion rules for %s/%s: %w", shopCode, currency, err)
	}
	pc := NewContext(rules, f.Now)
	pc.logger = f.Logger.With().Str("shop", shopCode).Str("currency", currency).Logger()
	return pc, nil
}

var _ pricing.PromotionContext = (*Context)(nil)

// Context applies a fixed set of rules. Higher priority rules win ties.
type Context struct {
	rules  []Rule
	now    func() time.Time
	logger zerolog.Logger
}

// NewContext orders rules by descending priority.
func NewContext(rules []Rule, now func() time.Time) *Context {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	if now == nil {
		now = time.Now
	}
	return &Context{rules: sorted, now: now, logger: zerolog.Nop()}
}

// best returns the rule of type t giving the largest discount on base.
func (pc *Context) best(t Type, customer *pricing.Customer, coupons []string, sku string, base, spend decimal.Decimal) (Rule, decimal.Decimal, bool) {
	var (
		chosen   Rule
		discount = money.Zero
		found    bool
	)
	now := pc.now()
	for _, rule := range pc.rules {
		if rule.Type != t || !rule.AppliesTo(sku) {
			continue
		}
		if err := rule.Eligible(customer, coupons); err != nil {
			continue
		}
		if err := rule.Validate(now, spend); err != nil {
			pc.logger.Debug().Err(err).Str("promotion", rule.Code).Msg("promotion skipped")
			continue
		}
		if d := Compute(base, rule); d.GreaterThan(discount) {
			chosen, discount, found = rule, d, true
		}
	}
	return chosen, discount, found
}

// ApplyItemPromotions resets earlier promotions and gifts, then discounts
// every product line that is not under an offer and grants gifts.
func (pc *Context) ApplyItemPromotions(_ context.Context, customer *pricing.Customer, c *cart.ShoppingCart) error {
	c.RemoveItemPromotions()
	coupons := c.CouponCodes()
	for _, line := range c.Products {
		if line.FixedPrice || !line.Price.Valid || !line.Qty.IsPositive() {
			continue
		}
		base := line.Price.Decimal
		rule, discount, ok := pc.best(TypeItem, customer, coupons, line.ProductSkuCode, base, base.Mul(line.Qty))
		if !ok {
			continue
		}
		c.SetProductSkuPromotion(line.SupplierCode, line.ProductSkuCode, base.Sub(discount), rule.AppliedCode())
	}
	pc.grantGifts(customer, c, coupons)
	return nil
}

func (pc *Context) grantGifts(customer *pricing.Customer, c *cart.ShoppingCart, coupons []string) {
	spend := productSpend(c)
	now := pc.now()
	for _, rule := range pc.rules {
		if rule.Type != TypeGift || rule.GiftSku == "" {
			continue
		}
		if err := rule.Eligible(customer, coupons); err != nil {
			continue
		}
		if err := rule.Validate(now, spend); err != nil {
			continue
		}
		if !qualifyingProduct(c, rule) {
			continue
		}
		qty := rule.GiftQty
		if !qty.IsPositive() {
			qty = decimal.NewFromInt(1)
		}
		c.AddGiftToCart(rule.GiftSupplier, rule.GiftSku, rule.GiftName, qty, rule.AppliedCode())
		c.SetGiftPrice(rule.GiftSupplier, rule.GiftSku, rule.GiftListPrice, rule.GiftListPrice)
	}
}

// ApplyOrderPromotions takes the best order discount off the item sub total.
func (pc *Context) ApplyOrderPromotions(_ context.Context, customer *pricing.Customer, c *cart.ShoppingCart, itemTotal pricing.Total) (pricing.Total, error) {
	rule, discount, ok := pc.best(TypeOrder, customer, c.CouponCodes(), "", itemTotal.SubTotal, itemTotal.SubTotal)
	if !ok {
		return itemTotal, nil
	}
	return itemTotal.WithOrderPromotion(discount, rule.AppliedCode()), nil
}

// ApplyShippingPromotions discounts shipping lines. Minimum spend is
// measured against the order sub total.
func (pc *Context) ApplyShippingPromotions(_ context.Context, customer *pricing.Customer, c *cart.ShoppingCart, orderTotal pricing.Total) error {
	coupons := c.CouponCodes()
	for _, line := range c.ShippingList() {
		if !line.Price.Valid {
			continue
		}
		base := line.Price.Decimal
		rule, discount, ok := pc.best(TypeShipping, customer, coupons, line.ProductSkuCode, base, orderTotal.SubTotal)
		if !ok {
			continue
		}
		c.SetShippingPromotion(line.ProductSkuCode, line.DeliveryBucket, base.Sub(discount), rule.AppliedCode())
	}
	return nil
}

func productSpend(c *cart.ShoppingCart) decimal.Decimal {
	spend := decimal.Zero
	for _, line := range c.Products {
		spend = spend.Add(money.OrZero(line.Price).Mul(line.Qty))
	}
	return money.Round(spend)
}

func qualifyingProduct(c *cart.ShoppingCart, rule Rule) bool {
	if len(rule.SkuCodes) == 0 {
		return !c.IsEmpty()
	}
	for _, line := range c.Products {
		if rule.AppliesTo(line.ProductSkuCode) {
			return true
		}
	}
	return false
}
