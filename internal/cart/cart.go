// Package cart models the mutable shopping cart: product, gift and shipping
// lines, the price override state machine, coupons and the shopping context.
//
// A ShoppingCart is owned by one request at a time and is not safe for
// concurrent use.
package cart

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// ShoppingCart holds cart lines and the context they are priced in.
type ShoppingCart struct {
	Guid              string           `json:"guid"`
	CurrencyCode      string           `json:"currencyCode"`
	Locale            string           `json:"locale"`
	ModifiedTimestamp time.Time        `json:"modifiedTimestamp"`
	Products          []CartItem       `json:"products"`
	Gifts             []CartItem       `json:"gifts"`
	Shipping          []CartItem       `json:"shipping"`
	Coupons           []string         `json:"coupons"`
	CarrierSlaID      map[string]int64 `json:"carrierSlaId"`
	Context           ShoppingContext  `json:"context"`
	Order             OrderInfo        `json:"order"`

	now func() time.Time
}

// Option customises a new cart.
type Option func(*ShoppingCart)

// WithClock overrides the clock used for modification timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *ShoppingCart) { c.now = now }
}

// New returns an empty cart in currency.
func New(currency string, sc ShoppingContext, opts ...Option) *ShoppingCart {
	c := &ShoppingCart{
		CurrencyCode: currency,
		Context:      sc,
		CarrierSlaID: map[string]int64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.markDirty()
	return c
}

// SetClock replaces the clock on a cart restored from storage.
func (c *ShoppingCart) SetClock(now func() time.Time) {
	c.now = now
}

func (c *ShoppingCart) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// markDirty issues a new Guid and modification timestamp.
func (c *ShoppingCart) markDirty() {
	c.Guid = uuid.NewString()
	c.ModifiedTimestamp = c.clock().UTC()
}

// CustomerEmail is a shortcut to the shopping context email.
func (c *ShoppingCart) CustomerEmail() string {
	return c.Context.CustomerEmail
}

// Items returns a copy of all product lines followed by gift lines.
func (c *ShoppingCart) Items() []CartItem {
	out := make([]CartItem, 0, len(c.Products)+len(c.Gifts))
	out = append(out, c.Products...)
	return append(out, c.Gifts...)
}

// ShippingList returns a copy of the shipping lines.
func (c *ShoppingCart) ShippingList() []CartItem {
	return append([]CartItem(nil), c.Shipping...)
}

// IsEmpty reports whether the cart has no product or gift lines.
func (c *ShoppingCart) IsEmpty() bool {
	return len(c.Products) == 0 && len(c.Gifts) == 0
}

// CartItemsCount sums quantities across product and gift lines.
func (c *ShoppingCart) CartItemsCount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Products {
		total = total.Add(item.Qty)
	}
	for _, item := range c.Gifts {
		total = total.Add(item.Qty)
	}
	return total
}

// ProductSkuQuantity returns the quantity of a product line, zero when absent.
func (c *ShoppingCart) ProductSkuQuantity(supplier, sku string) decimal.Decimal {
	if idx := c.IndexOfProductSku(supplier, sku); idx >= 0 {
		return c.Products[idx].Qty
	}
	return decimal.Zero
}

// Buckets lists distinct delivery buckets of product and gift lines in line order.
func (c *ShoppingCart) Buckets() []DeliveryBucket {
	seen := map[DeliveryBucket]struct{}{}
	var out []DeliveryBucket
	for _, item := range c.Items() {
		if _, ok := seen[item.DeliveryBucket]; ok {
			continue
		}
		seen[item.DeliveryBucket] = struct{}{}
		out = append(out, item.DeliveryBucket)
	}
	return out
}

// ItemsInBucket returns product and gift lines shipped in bucket.
func (c *ShoppingCart) ItemsInBucket(bucket DeliveryBucket) []CartItem {
	var out []CartItem
	for _, item := range c.Items() {
		if item.DeliveryBucket == bucket {
			out = append(out, item)
		}
	}
	return out
}

// CarrierSlaSuppliers returns the suppliers with a selected carrier SLA, sorted.
func (c *ShoppingCart) CarrierSlaSuppliers() []string {
	suppliers := make([]string, 0, len(c.CarrierSlaID))
	for supplier := range c.CarrierSlaID {
		suppliers = append(suppliers, supplier)
	}
	sort.Strings(suppliers)
	return suppliers
}

// SetCarrierSla selects the carrier SLA for supplier. A non-positive id clears it.
func (c *ShoppingCart) SetCarrierSla(supplier string, slaID int64) {
	if c.CarrierSlaID == nil {
		c.CarrierSlaID = map[string]int64{}
	}
	if slaID <= 0 {
		delete(c.CarrierSlaID, supplier)
		return
	}
	c.CarrierSlaID[supplier] = slaID
}

// IndexOfProductSku returns the position of a product line or -1.
func (c *ShoppingCart) IndexOfProductSku(supplier, sku string) int {
	return indexOf(c.Products, supplier, sku)
}

// IndexOfGift returns the position of a gift line among gifts or -1.
func (c *ShoppingCart) IndexOfGift(supplier, sku string) int {
	return indexOf(c.Gifts, supplier, sku)
}

func indexOf(items []CartItem, supplier, sku string) int {
	for i := range items {
		if items[i].matches(supplier, sku) {
			return i
		}
	}
	return -1
}

// AddProductSkuToCart adds qty of sku, merging into an existing line. It
// reports whether a new line was created. A non-positive qty is ignored.
func (c *ShoppingCart) AddProductSkuToCart(supplier, sku, name string, qty decimal.Decimal) bool {
	if !qty.IsPositive() {
		return false
	}
	defer c.markDirty()
	if idx := c.IndexOfProductSku(supplier, sku); idx >= 0 {
		c.Products[idx].Qty = c.Products[idx].Qty.Add(qty)
		return false
	}
	c.Products = append(c.Products, newItem(supplier, sku, name, qty))
	return true
}

// AddGiftToCart adds a free gift line granted by promoCode. Repeated grants
// merge quantities and accumulate promo codes.
func (c *ShoppingCart) AddGiftToCart(supplier, sku, name string, qty decimal.Decimal, promoCode string) bool {
	defer c.markDirty()
	if idx := c.IndexOfGift(supplier, sku); idx >= 0 {
		c.Gifts[idx].Qty = c.Gifts[idx].Qty.Add(qty)
		c.Gifts[idx].addPromoCode(promoCode)
		return false
	}
	gift := newItem(supplier, sku, name, qty)
	gift.Gift = true
	gift.PromoApplied = true
	gift.addPromoCode(promoCode)
	c.Gifts = append(c.Gifts, gift)
	return true
}

// RemoveCartItem removes the product line for (supplier, sku).
func (c *ShoppingCart) RemoveCartItem(supplier, sku string) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Products = append(c.Products[:idx], c.Products[idx+1:]...)
	c.markDirty()
	return true
}

// RemoveCartItemQuantity decrements a product line, removing it when the
// requested quantity covers what is left. A non-positive qty changes nothing.
func (c *ShoppingCart) RemoveCartItemQuantity(supplier, sku string, qty decimal.Decimal) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 || !qty.IsPositive() {
		return false
	}
	remaining := c.Products[idx].Qty.Sub(qty)
	if qty.GreaterThanOrEqual(c.Products[idx].Qty) || !remaining.IsPositive() {
		c.Products = append(c.Products[:idx], c.Products[idx+1:]...)
	} else {
		c.Products[idx].Qty = remaining
	}
	c.markDirty()
	return true
}

// SetProductSkuQuantity sets the quantity of a product line; non-positive removes it.
func (c *ShoppingCart) SetProductSkuQuantity(supplier, sku string, qty decimal.Decimal) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	if !qty.IsPositive() {
		return c.RemoveCartItem(supplier, sku)
	}
	c.Products[idx].Qty = qty
	c.markDirty()
	return true
}

// SetProductSkuPrice sets sale and list prices on a product line.
func (c *ShoppingCart) SetProductSkuPrice(supplier, sku string, sale, list decimal.Decimal) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Products[idx].setPrice(sale, list)
	return true
}

// SetGiftPrice records the sale and list value of a gift line; the charged price stays zero.
func (c *ShoppingCart) SetGiftPrice(supplier, sku string, sale, list decimal.Decimal) bool {
	idx := c.IndexOfGift(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Gifts[idx].SalePrice = money.Of(sale)
	c.Gifts[idx].ListPrice = money.Of(list)
	return true
}

// SetProductSkuPromotion applies a promotional price to a product line.
func (c *ShoppingCart) SetProductSkuPromotion(supplier, sku string, promo decimal.Decimal, code string) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Products[idx].setPromotion(promo, code)
	return true
}

// SetProductSkuOffer applies a fixed authorised price to a product line.
func (c *ShoppingCart) SetProductSkuOffer(supplier, sku string, offer decimal.Decimal, authCode string) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Products[idx].setOffer(offer, authCode)
	return true
}

// SetProductSkuTax writes the tax breakdown onto a product line.
func (c *ShoppingCart) SetProductSkuTax(supplier, sku string, net, gross, rate decimal.Decimal, code string, exclusive bool) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Products[idx].setTax(net, gross, rate, code, exclusive)
	return true
}

// SetGiftTax writes the tax breakdown onto a gift line.
func (c *ShoppingCart) SetGiftTax(supplier, sku string, net, gross, rate decimal.Decimal, code string, exclusive bool) bool {
	idx := c.IndexOfGift(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Gifts[idx].setTax(net, gross, rate, code, exclusive)
	return true
}

// SetProductSkuDeliveryBucket moves a product line into bucket.
func (c *ShoppingCart) SetProductSkuDeliveryBucket(supplier, sku string, bucket DeliveryBucket) bool {
	idx := c.IndexOfProductSku(supplier, sku)
	if idx < 0 {
		return false
	}
	c.Products[idx].DeliveryBucket = bucket
	return true
}

// RemoveItemPromotions drops gift lines and promotional prices. Offers stay.
func (c *ShoppingCart) RemoveItemPromotions() {
	for i := range c.Products {
		c.Products[i].clearPromotion()
	}
	c.Gifts = nil
}

// RemoveItemOffers clears offer prices. Promotions and gifts stay.
func (c *ShoppingCart) RemoveItemOffers() {
	for i := range c.Products {
		c.Products[i].clearOffer()
	}
}

// AddCoupon records a coupon code entered by the customer.
func (c *ShoppingCart) AddCoupon(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	c.Coupons = append(c.Coupons, code)
	c.markDirty()
	return true
}

// RemoveCoupon removes every occurrence of code.
func (c *ShoppingCart) RemoveCoupon(code string) bool {
	kept := c.Coupons[:0]
	removed := false
	for _, existing := range c.Coupons {
		if existing == code {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	c.Coupons = kept
	if removed {
		c.markDirty()
	}
	return removed
}

// CouponCodes returns a copy of the entered coupons.
func (c *ShoppingCart) CouponCodes() []string {
	return append([]string(nil), c.Coupons...)
}

// AppliedCoupons lists coupons that granted a gift, taken from "PROMO:COUPON"
// entries of gift promo annotations.
func (c *ShoppingCart) AppliedCoupons() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, gift := range c.Gifts {
		for _, entry := range strings.Split(gift.PromoCode(), ",") {
			_, coupon, ok := strings.Cut(entry, ":")
			coupon = strings.TrimSpace(coupon)
			if !ok || coupon == "" {
				continue
			}
			if _, dup := seen[coupon]; dup {
				continue
			}
			seen[coupon] = struct{}{}
			out = append(out, coupon)
		}
	}
	return out
}

// Clean empties the cart and issues a new Guid. Shopping context survives.
func (c *ShoppingCart) Clean() {
	c.Products = nil
	c.Gifts = nil
	c.Shipping = nil
	c.Coupons = nil
	c.CarrierSlaID = map[string]int64{}
	c.Order = OrderInfo{}
	c.markDirty()
}

// SetDeliveryLocation changes the tax and delivery region. Shipping lines
// priced for the previous region are dropped.
func (c *ShoppingCart) SetDeliveryLocation(countryCode, stateCode string) bool {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	if c.Context.CountryCode == countryCode && c.Context.StateCode == stateCode {
		return false
	}
	c.Context.CountryCode = countryCode
	c.Context.StateCode = stateCode
	c.Shipping = nil
	c.markDirty()
	return true
}

// SetOrderMessage stores the customer's note for the order.
func (c *ShoppingCart) SetOrderMessage(message string) bool {
	message = strings.TrimSpace(message)
	if c.Order.OrderMessage == message {
		return false
	}
	c.Order.OrderMessage = message
	c.markDirty()
	return true
}

// SetOrderDetail stores a named order detail; an empty value removes it.
func (c *ShoppingCart) SetOrderDetail(key, value string) bool {
	key = strings.TrimSpace(key)
	if key == "" || !c.Order.PutDetail(key, strings.TrimSpace(value)) {
		return false
	}
	c.markDirty()
	return true
}
