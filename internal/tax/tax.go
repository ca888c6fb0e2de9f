// Package tax resolves the tax that applies to a SKU in a shop and region
// and splits prices into net and gross parts.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// Tax is a resolved tax rate. Excluded means prices are quoted net of tax.
type Tax struct {
	Code     string
	Rate     decimal.Decimal
	Excluded bool
}

// None is the tax used when no configuration matches.
var None = Tax{Code: "", Rate: money.Zero, Excluded: false}

// Split returns the net and gross amounts of price under t.
//
// Exclusive prices are net already and gross is rounded half up. Inclusive
// prices are gross already and net is rounded down, so the tax portion
// absorbs the remainder.
func (t Tax) Split(price decimal.Decimal) (net, gross decimal.Decimal) {
	price = money.Round(price)
	if !t.Rate.IsPositive() {
		return price, price
	}
	factor := money.Hundred.Add(t.Rate)
	if t.Excluded {
		return price, money.Round(price.Mul(factor).Div(money.Hundred))
	}
	return money.Floor(price.Mul(money.Hundred).Div(factor)), price
}

// GrossUp returns the gross equivalent of a list amount given a line's net
// and gross unit prices. Inclusive amounts are returned unchanged.
func GrossUp(amount, net, gross decimal.Decimal, exclusive bool) decimal.Decimal {
	if !exclusive || net.IsZero() || net.Equal(gross) {
		return money.Round(amount)
	}
	return money.Round(amount.Mul(gross).Div(net))
}
