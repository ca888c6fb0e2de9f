// Package shipping prices delivery buckets for the carrier SLAs selected on
// a cart and writes the resulting shipping lines back onto it.
package shipping

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// SlaType selects the strategy that prices an SLA.
type SlaType string

const (
	SlaFree         SlaType = "FREE"
	SlaWeightVolume SlaType = "WEIGHT_VOLUME"
)

// CarrierSla is a carrier service level (shipping method).
type CarrierSla struct {
	ID          int64
	GUID        string
	Name        string
	DisplayName string
	Type        SlaType
}

// Label is the name shown on the shipping line.
func (s CarrierSla) Label() string {
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	return s.Name
}

// PricingPolicy identifies the price list that applies to a shopper.
type PricingPolicy struct {
	ID   string
	Type string
}

// DefaultPolicy is used when no policy matches.
var DefaultPolicy = PricingPolicy{ID: "DEFAULT", Type: "DEFAULT"}

// SkuPrice is a price tier record. A zero SkuPriceID marks a record that
// is not priced.
type SkuPrice struct {
	SkuPriceID int64
	SkuCode    string
	Quantity   decimal.Decimal
	ListPrice  decimal.Decimal
	SalePrice  decimal.NullDecimal
}

// Priced reports whether p is a real price record.
func (p *SkuPrice) Priced() bool {
	return p != nil && p.SkuPriceID > 0
}

// Effective is the sale price when present, else the list price.
func (p *SkuPrice) Effective() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.ListPrice
}

// PriceQuery selects the cheapest price tier for a SKU code.
// FallbackShopID is consulted when ShopID has no price; zero disables it.
type PriceQuery struct {
	SkuCode        string
	ShopID         int64
	FallbackShopID int64
	Currency       string
	Quantity       decimal.Decimal
	PolicyID       string
	Supplier       string
}

// SlaService looks up carrier SLAs. A nil SLA with nil error means not found.
type SlaService interface {
	CarrierSlaByID(ctx context.Context, id int64) (*CarrierSla, error)
}

// PolicyProvider resolves the pricing policy for a shopper.
type PolicyProvider interface {
	DeterminePricingPolicy(ctx context.Context, shopCode, currency, email, countryCode, stateCode string) (PricingPolicy, error)
}

// PriceService returns the minimal price tier matching q, nil when none.
type PriceService interface {
	MinimalPrice(ctx context.Context, q PriceQuery) (*SkuPrice, error)
}

// ShopSettings exposes shop level pricing flags.
type ShopSettings interface {
	B2BStrictPriceActive(ctx context.Context, shopID int64) (bool, error)
}

// AttributeSource returns the attribute values of a SKU keyed by attribute code.
type AttributeSource interface {
	SkuAttributes(ctx context.Context, skuCode string) (map[string]string, error)
}
