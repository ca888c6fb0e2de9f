// Package cache builds the redis keys of the catalog read-through cache.
package cache

import (
	"strconv"
	"strings"
)

// Key joins prefix and parts with ':' and lower-cases codes so lookups by
// shop and currency are case insensitive.
func Key(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(prefix, ":"))
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(strings.TrimSpace(p)))
	}
	return b.String()
}

// KeyTaxRules is the key of the tax rules of a shop and currency.
func KeyTaxRules(prefix, shopCode, currency string) string {
	return Key(prefix, "tax", shopCode, currency)
}

// KeyPromotions is the key of the promotion rules of a shop and currency.
func KeyPromotions(prefix, shopCode, currency string) string {
	return Key(prefix, "promo", shopCode, currency)
}

// KeyCarrierSla is the key of a carrier SLA.
func KeyCarrierSla(prefix string, id int64) string {
	return Key(prefix, "sla", strconv.FormatInt(id, 10))
}

// KeyShop is the key of shop level settings.
func KeyShop(prefix string, shopID int64) string {
	return Key(prefix, "shop", strconv.FormatInt(shopID, 10))
}
