package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
)

// Delivery is a read-only view of one shipment of an order: its lines and
// the priced shipping charge.
type Delivery struct {
	Detail              []cart.CartItem
	Price               decimal.NullDecimal
	ListPrice           decimal.NullDecimal
	NetPrice            decimal.Decimal
	GrossPrice          decimal.Decimal
	TaxExclusiveOfPrice bool
	PromoApplied        bool
	AppliedPromo        *string
}

// shippingLine presents the delivery charge as a single quantity line.
func (d Delivery) shippingLine() cart.CartItem {
	return cart.CartItem{
		Qty:                 decimal.NewFromInt(1),
		ListPrice:           d.ListPrice,
		SalePrice:           d.Price,
		Price:               d.Price,
		NetPrice:            d.NetPrice,
		GrossPrice:          d.GrossPrice,
		TaxExclusiveOfPrice: d.TaxExclusiveOfPrice,
		PromoApplied:        d.PromoApplied,
		AppliedPromo:        d.AppliedPromo,
	}
}

// Order is a read-only view of a placed or draft order. A draft order has
// no deliveries and is priced from Detail alone. When PromoApplied is set
// Price, NetPrice and GrossPrice carry the order level promotional sub total.
type Order struct {
	Deliveries   []Delivery
	Detail       []cart.CartItem
	Price        decimal.NullDecimal
	ListPrice    decimal.NullDecimal
	NetPrice     decimal.Decimal
	GrossPrice   decimal.Decimal
	PromoApplied bool
	AppliedPromo *string
}
