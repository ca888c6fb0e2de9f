package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// DefaultGroup is the shipping group assigned to lines that have not been split.
const DefaultGroup = "D1"

// DeliveryBucket groups cart lines that ship together from one supplier.
type DeliveryBucket struct {
	Group    string `json:"group"`
	Supplier string `json:"supplier"`
}

// DefaultBucket returns the bucket every new line of supplier starts in.
func DefaultBucket(supplier string) DeliveryBucket {
	return DeliveryBucket{Group: DefaultGroup, Supplier: supplier}
}

func (b DeliveryBucket) String() string {
	return b.Group + "|" + b.Supplier
}

// CartItem is a single product, gift or shipping line.
type CartItem struct {
	SupplierCode        string              `json:"supplierCode"`
	ProductSkuCode      string              `json:"productSkuCode"`
	ProductName         string              `json:"productName"`
	Qty                 decimal.Decimal     `json:"qty"`
	ListPrice           decimal.NullDecimal `json:"listPrice"`
	SalePrice           decimal.NullDecimal `json:"salePrice"`
	Price               decimal.NullDecimal `json:"price"`
	NetPrice            decimal.Decimal     `json:"netPrice"`
	GrossPrice          decimal.Decimal     `json:"grossPrice"`
	TaxRate             decimal.Decimal     `json:"taxRate"`
	TaxCode             string              `json:"taxCode"`
	TaxExclusiveOfPrice bool                `json:"taxExclusiveOfPrice"`
	Gift                bool                `json:"gift"`
	FixedPrice          bool                `json:"fixedPrice"`
	PromoApplied        bool                `json:"promoApplied"`
	AppliedPromo        *string             `json:"appliedPromo,omitempty"`
	DeliveryBucket      DeliveryBucket      `json:"deliveryBucket"`
}

func newItem(supplier, sku, name string, qty decimal.Decimal) CartItem {
	return CartItem{
		SupplierCode:   supplier,
		ProductSkuCode: sku,
		ProductName:    name,
		Qty:            qty,
		ListPrice:      money.Of(money.Zero),
		SalePrice:      money.Of(money.Zero),
		Price:          money.Of(money.Zero),
		NetPrice:       money.Zero,
		GrossPrice:     money.Zero,
		TaxRate:        money.Zero,
		DeliveryBucket: DefaultBucket(supplier),
	}
}

func (i *CartItem) matches(supplier, sku string) bool {
	return i.SupplierCode == supplier && i.ProductSkuCode == sku
}

// IsOnSale reports whether the sale price differs from the list price.
func (i CartItem) IsOnSale() bool {
	return !money.Equal(i.SalePrice, i.ListPrice)
}

// PromoCode returns the applied promotion or offer code, or "" when none.
func (i CartItem) PromoCode() string {
	if i.AppliedPromo == nil {
		return ""
	}
	return *i.AppliedPromo
}

// basePrice is the price a line falls back to once promotions or offers are cleared.
func (i *CartItem) basePrice() decimal.NullDecimal {
	if i.SalePrice.Valid {
		return i.SalePrice
	}
	return i.ListPrice
}

func (i *CartItem) setPrice(sale, list decimal.Decimal) {
	sale, list = money.Round(sale), money.Round(list)
	if i.FixedPrice {
		offer := money.OrZero(i.Price)
		if sale.LessThan(offer) {
			i.ListPrice = money.Of(offer)
			i.SalePrice = money.Of(offer)
			return
		}
		i.ListPrice = money.Of(list)
		i.SalePrice = money.Of(sale)
		return
	}
	i.ListPrice = money.Of(list)
	i.SalePrice = money.Of(sale)
	i.Price = money.Of(sale)
	i.PromoApplied = false
	i.AppliedPromo = nil
}

func (i *CartItem) setPromotion(promo decimal.Decimal, code string) {
	i.Price = money.Of(promo)
	i.PromoApplied = true
	i.FixedPrice = false
	i.AppliedPromo = optional(code)
}

func (i *CartItem) setOffer(offer decimal.Decimal, authCode string) {
	i.Price = money.Of(offer)
	i.FixedPrice = true
	i.PromoApplied = false
	i.AppliedPromo = optional(authCode)
}

func (i *CartItem) clearPromotion() {
	if !i.PromoApplied {
		return
	}
	i.Price = i.basePrice()
	i.PromoApplied = false
	i.AppliedPromo = nil
}

func (i *CartItem) clearOffer() {
	if !i.FixedPrice {
		return
	}
	i.Price = i.basePrice()
	i.FixedPrice = false
	i.AppliedPromo = nil
}

func (i *CartItem) setTax(net, gross, rate decimal.Decimal, code string, exclusive bool) {
	i.NetPrice = money.Round(net)
	i.GrossPrice = money.Round(gross)
	i.TaxRate = money.Round(rate)
	i.TaxCode = code
	i.TaxExclusiveOfPrice = exclusive
}

// addPromoCode appends code to a gift's comma separated promo list.
func (i *CartItem) addPromoCode(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	if i.AppliedPromo == nil || *i.AppliedPromo == "" {
		i.AppliedPromo = optional(code)
		return
	}
	joined := *i.AppliedPromo + "," + code
	i.AppliedPromo = &joined
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
