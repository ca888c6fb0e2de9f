package cart

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

func (c *ShoppingCart) indexOfShipping(slaGUID string, bucket DeliveryBucket) int {
	for i := range c.Shipping {
		if c.Shipping[i].ProductSkuCode == slaGUID && c.Shipping[i].DeliveryBucket == bucket {
			return i
		}
	}
	return -1
}

// AddShippingToCart adds a shipping line for bucket, merging into an
// existing line for the same SLA and bucket.
func (c *ShoppingCart) AddShippingToCart(bucket DeliveryBucket, slaGUID, name string, qty decimal.Decimal) bool {
	if idx := c.indexOfShipping(slaGUID, bucket); idx >= 0 {
		c.Shipping[idx].Qty = c.Shipping[idx].Qty.Add(qty)
		return false
	}
	line := newItem(bucket.Supplier, slaGUID, name, qty)
	line.DeliveryBucket = bucket
	c.Shipping = append(c.Shipping, line)
	return true
}

// SetShippingPrice sets the sale and list cost of a shipping line.
func (c *ShoppingCart) SetShippingPrice(slaGUID string, bucket DeliveryBucket, sale, list decimal.Decimal) bool {
	idx := c.indexOfShipping(slaGUID, bucket)
	if idx < 0 {
		return false
	}
	c.Shipping[idx].setPrice(sale, list)
	return true
}

// SetShippingPromotion applies a promotional cost to a shipping line.
func (c *ShoppingCart) SetShippingPromotion(slaGUID string, bucket DeliveryBucket, promo decimal.Decimal, code string) bool {
	idx := c.indexOfShipping(slaGUID, bucket)
	if idx < 0 {
		return false
	}
	c.Shipping[idx].setPromotion(promo, code)
	return true
}

// SetShippingTax writes the tax breakdown onto a shipping line.
func (c *ShoppingCart) SetShippingTax(slaGUID string, bucket DeliveryBucket, net, gross, rate decimal.Decimal, code string, exclusive bool) bool {
	idx := c.indexOfShipping(slaGUID, bucket)
	if idx < 0 {
		return false
	}
	c.Shipping[idx].setTax(net, gross, rate, code, exclusive)
	return true
}

// RemoveShipping drops every shipping line.
func (c *ShoppingCart) RemoveShipping() {
	c.Shipping = nil
}

// ShippingCost sums price times quantity over shipping lines.
func (c *ShoppingCart) ShippingCost() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Shipping {
		total = total.Add(money.OrZero(line.Price).Mul(line.Qty))
	}
	return money.Round(total)
}
