// Package availability decides whether a SKU can be sold in a shop and
// how much of it is left to sell.
package availability

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Availability is the stock policy of an inventory record.
type Availability string

const (
	// NA means no inventory record exists for the SKU.
	NA        Availability = "NA"
	Standard  Availability = "STANDARD"
	Backorder Availability = "BACKORDER"
	Always    Availability = "ALWAYS"
	Showroom  Availability = "SHOWROOM"
)

// Parse maps a stored availability name to its value, NA when unknown.
func Parse(value string) Availability {
	switch a := Availability(value); a {
	case Standard, Backorder, Always, Showroom:
		return a
	}
	return NA
}

// Unlimited is reported as the quantity left to sell for ALWAYS SKUs.
var Unlimited = decimal.NewFromInt(math.MaxInt32)

// Model describes the availability of a SKU, or of a product through its
// default SKU.
type Model struct {
	Availability    Availability               `json:"availability"`
	DefaultSkuCode  string                     `json:"defaultSkuCode,omitempty"`
	Perpetual       bool                       `json:"perpetual"`
	InStock         bool                       `json:"inStock"`
	Available       bool                       `json:"available"`
	ReleaseDate     *time.Time                 `json:"releaseDate,omitempty"`
	AvailableToSell map[string]decimal.Decimal `json:"availableToSell"`
}

// AvailableToSellQuantity returns the quantity left for sku, zero when unknown.
func (m Model) AvailableToSellQuantity(sku string) decimal.Decimal {
	if qty, ok := m.AvailableToSell[sku]; ok {
		return qty
	}
	return decimal.Zero
}

// SkuCodes lists the SKUs with a known quantity, sorted.
func (m Model) SkuCodes() []string {
	out := make([]string, 0, len(m.AvailableToSell))
	for sku := range m.AvailableToSell {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out
}

// Inventory is the stock record of a SKU in a warehouse.
type Inventory struct {
	SkuCode      string
	Availability Availability
	Quantity     decimal.Decimal
	Reserved     decimal.Decimal
	ReleaseDate  *time.Time
}

// AvailableToSell is the quantity minus reservations, never negative.
func (i Inventory) AvailableToSell() decimal.Decimal {
	left := i.Quantity.Sub(i.Reserved)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Warehouse fulfils a supplier's orders for a shop.
type Warehouse struct {
	ID   int64
	Code string
}

// modelFor applies the availability rules to a single inventory record.
func modelFor(sku string, inv *Inventory) Model {
	if inv == nil {
		return Model{
			Availability:    NA,
			DefaultSkuCode:  sku,
			AvailableToSell: map[string]decimal.Decimal{sku: decimal.Zero},
		}
	}
	qty := inv.AvailableToSell()
	hasStock := qty.IsPositive()
	m := Model{
		Availability:    Parse(string(inv.Availability)),
		DefaultSkuCode:  sku,
		ReleaseDate:     inv.ReleaseDate,
		AvailableToSell: map[string]decimal.Decimal{sku: qty},
	}
	switch m.Availability {
	case Standard:
		m.Available, m.InStock = hasStock, hasStock
	case Backorder:
		m.Available, m.InStock = true, hasStock
	case Always:
		m.Available, m.InStock, m.Perpetual = true, false, true
		m.AvailableToSell[sku] = Unlimited
	case Showroom:
		m.Available, m.InStock = false, hasStock
	default:
		m.AvailableToSell[sku] = decimal.Zero
	}
	return m
}
