// Package money holds the decimal conventions shared by every price
// computation: two decimal places, half-up rounding, nil-safe inputs.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for monetary values.
const Scale int32 = 2

var (
	// Zero is the canonical 0.00 value.
	Zero = decimal.New(0, -Scale)
	// Hundred is used for percentage arithmetic.
	Hundred = decimal.NewFromInt(100)
	// MaxQuantity is the sentinel used for "unlimited" quantities (2147483647.00).
	MaxQuantity = decimal.New(2147483647, 0).Round(Scale)
)

// Round rounds d to Scale decimal places, half up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Floor rounds d down to Scale decimal places.
func Floor(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(Scale)
}

// Parse parses a decimal string and rounds it. Blank input yields Zero.
func Parse(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Zero, err
	}
	return Round(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(value string) decimal.Decimal {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Of returns a present optional value.
func Of(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: Round(d), Valid: true}
}

// OrZero unwraps an optional value, treating absence as Zero.
func OrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return Zero
	}
	return d.Decimal
}

// IsPositive reports whether the optional value is present and greater than zero.
func IsPositive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}

// Equal compares two optional values; two absent values are equal.
func Equal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// Sum adds all values and rounds once.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// Format renders d with exactly Scale decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
