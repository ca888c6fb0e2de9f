package promotion

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

var (
	// ErrNotEligible is returned when the rule does not apply to the cart or customer.
	ErrNotEligible = errors.New("promotion not eligible")
	// ErrInactive is returned when evaluating a rule before its active window.
	ErrInactive = errors.New("promotion not active")
	// ErrExpired is returned when the rule has already expired.
	ErrExpired = errors.New("promotion expired")
	// ErrMinimumSpendUnmet indicates the spend did not meet the rule requirement.
	ErrMinimumSpendUnmet = errors.New("promotion minimum spend not met")
)

// Type is the cart level a rule acts on.
type Type string

const (
	TypeItem     Type = "ITEM"
	TypeOrder    Type = "ORDER"
	TypeShipping Type = "SHIPPING"
	TypeGift     Type = "GIFT"
)

// Discount kinds.
const (
	KindPercent = "percent"
	KindFixed   = "fixed"
)

// Rule captures one promotion. SkuCodes scopes item and gift rules to
// product SKUs and shipping rules to SLA guids; empty means any.
type Rule struct {
	Code          string
	Type          Type
	Kind          string
	Value         decimal.Decimal
	MinSpend      decimal.Decimal
	Coupon        string
	SkuCodes      []string
	CustomerTags  []string
	GiftSupplier  string
	GiftSku       string
	GiftName      string
	GiftQty       decimal.Decimal
	GiftListPrice decimal.Decimal
	ValidFrom     *time.Time
	ValidTo       *time.Time
	Priority      int
}

// Validate ensures the rule can be applied at the provided instant and spend.
func (r Rule) Validate(now time.Time, spend decimal.Decimal) error {
	if spend.LessThan(r.MinSpend) {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	return nil
}

// Eligible checks coupon gating and customer tags.
func (r Rule) Eligible(customer *pricing.Customer, coupons []string) error {
	if r.Coupon != "" && !containsFold(coupons, r.Coupon) {
		return ErrNotEligible
	}
	if len(r.CustomerTags) == 0 {
		return nil
	}
	if customer == nil {
		return ErrNotEligible
	}
	for _, tag := range customer.Tags {
		if containsFold(r.CustomerTags, tag) {
			return nil
		}
	}
	return ErrNotEligible
}

// AppliesTo reports whether sku is in the rule scope.
func (r Rule) AppliesTo(sku string) bool {
	if len(r.SkuCodes) == 0 {
		return true
	}
	for _, code := range r.SkuCodes {
		if code == sku {
			return true
		}
	}
	return false
}

// AppliedCode is the code written to cart lines. Coupon gated rules are
// annotated as PROMO:COUPON.
func (r Rule) AppliedCode() string {
	if r.Coupon == "" {
		return r.Code
	}
	return r.Code + ":" + r.Coupon
}

// Compute determines the discount on base. It never exceeds base.
func Compute(base decimal.Decimal, r Rule) decimal.Decimal {
	if !base.IsPositive() || !r.Value.IsPositive() {
		return money.Zero
	}
	discount := r.Value
	if strings.EqualFold(r.Kind, KindPercent) {
		discount = base.Mul(r.Value).Div(money.Hundred)
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	return money.Round(discount)
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
