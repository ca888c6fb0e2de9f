package cart

import "strings"

// MaxRecentlyViewed bounds the recently viewed SKU history.
const MaxRecentlyViewed = 10

// ShoppingContext describes where and for whom a cart is priced.
type ShoppingContext struct {
	ShopID                 int64    `json:"shopId"`
	ShopCode               string   `json:"shopCode"`
	CustomerShopID         int64    `json:"customerShopId"`
	CustomerShopCode       string   `json:"customerShopCode"`
	CountryCode            string   `json:"countryCode"`
	StateCode              string   `json:"stateCode"`
	CustomerEmail          string   `json:"customerEmail"`
	LatestViewedSkus       []string `json:"latestViewedSkus,omitempty"`
	LatestViewedCategories []string `json:"latestViewedCategories,omitempty"`
}

// EffectiveCustomerShopID falls back to ShopID when no customer shop is set.
func (sc ShoppingContext) EffectiveCustomerShopID() int64 {
	if sc.CustomerShopID > 0 {
		return sc.CustomerShopID
	}
	return sc.ShopID
}

// ViewSku records sku of supplier as most recently viewed.
func (sc *ShoppingContext) ViewSku(sku, supplier string) {
	sc.LatestViewedSkus = pushRecent(sc.LatestViewedSkus, sku+"|"+supplier)
}

// ViewCategory records a category id as most recently viewed.
func (sc *ShoppingContext) ViewCategory(category string) {
	sc.LatestViewedCategories = pushRecent(sc.LatestViewedCategories, category)
}

func pushRecent(list []string, entry string) []string {
	entry = strings.TrimSpace(entry)
	if entry == "" || entry == "|" {
		return list
	}
	out := make([]string, 0, len(list)+1)
	for _, existing := range list {
		if existing != entry {
			out = append(out, existing)
		}
	}
	out = append(out, entry)
	if len(out) > MaxRecentlyViewed {
		out = out[len(out)-MaxRecentlyViewed:]
	}
	return out
}

// OrderInfo carries customer supplied order details.
type OrderInfo struct {
	OrderMessage string            `json:"orderMessage,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// PutDetail stores a key/value order detail; an empty value removes it.
// It reports whether the details changed.
func (o *OrderInfo) PutDetail(key, value string) bool {
	current, ok := o.Details[key]
	if value == "" {
		if !ok {
			return false
		}
		delete(o.Details, key)
		return true
	}
	if ok && current == value {
		return false
	}
	if o.Details == nil {
		o.Details = map[string]string{}
	}
	o.Details[key] = value
	return true
}
