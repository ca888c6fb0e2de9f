package pricing_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	require.Equal(t, want, money.Format(got), field)
}

type taxCall struct {
	shop, currency, country, state, sku string
}

type fakeTaxes struct {
	tax   tax.Tax
	err   error
	calls []taxCall
}

func (f *fakeTaxes) DetermineTax(_ context.Context, shop, currency, country, state, sku string) (tax.Tax, error) {
	f.calls = append(f.calls, taxCall{shop, currency, country, state, sku})
	if f.err != nil {
		return tax.Tax{}, f.err
	}
	return f.tax, nil
}

func vat(exclusive bool) *fakeTaxes {
	return &fakeTaxes{tax: tax.Tax{Code: "VAT", Rate: dec("20.00"), Excluded: exclusive}}
}

func line(sku string, qty, price, sale, list, net, gross string, exclusive bool) cart.CartItem {
	return cart.CartItem{
		SupplierCode:        "Main",
		ProductSkuCode:      sku,
		Qty:                 dec(qty),
		Price:               money.Of(dec(price)),
		SalePrice:           money.Of(dec(sale)),
		ListPrice:           money.Of(dec(list)),
		NetPrice:            dec(net),
		GrossPrice:          dec(gross),
		TaxRate:             dec("20.00"),
		TaxCode:             "VAT",
		TaxExclusiveOfPrice: exclusive,
		DeliveryBucket:      cart.DefaultBucket("Main"),
	}
}

func newCalculator(taxes pricing.TaxProvider) *pricing.Calculator {
	return pricing.NewCalculator(taxes, nil, nil, nil, zerolog.Nop())
}

func TestCalculateDelivery(t *testing.T) {
	calc := newCalculator(nil)

	requireAmount(t, "0.00", calc.CalculateDelivery(nil), "nil delivery")
	requireAmount(t, "0.00", calc.CalculateDelivery(&pricing.Delivery{}), "nil price")
	requireAmount(t, "9.99", calc.CalculateDelivery(&pricing.Delivery{Price: money.Of(dec("9.99"))}), "price")
}

func itemCart(t *testing.T) *cart.ShoppingCart {
	t.Helper()
	c := cart.New("EUR", cart.ShoppingContext{ShopID: 10, ShopCode: "SHOP10", CountryCode: "GB", StateCode: "GB-CAM"})
	c.AddProductSkuToCart("Main", "A-001", "Item 1", dec("2"))
	c.SetProductSkuPrice("Main", "A-001", dec("20.00"), dec("20.00"))
	c.AddProductSkuToCart("Main", "A-002", "Item 2", dec("1"))
	c.SetProductSkuPrice("Main", "A-002", dec("50.00"), dec("60.00"))
	c.SetProductSkuPromotion("Main", "A-002", dec("40.00"), "ITEM-10")
	return c
}

func TestItemTotalInclusiveTax(t *testing.T) {
	c := itemCart(t)
	taxes := vat(false)

	total := newCalculator(taxes).ApplyTaxToCartItemsAndCalculateItemTotal(context.Background(), c)

	require.Len(t, taxes.calls, 2)
	require.Equal(t, taxCall{"SHOP10", "EUR", "GB", "GB-CAM", "A-001"}, taxes.calls[0])
	requireAmount(t, "16.66", c.Products[0].NetPrice, "net A-001")
	requireAmount(t, "20.00", c.Products[0].GrossPrice, "gross A-001")
	requireAmount(t, "33.33", c.Products[1].NetPrice, "net A-002")
	require.Equal(t, "VAT", c.Products[1].TaxCode)
	require.False(t, c.Products[1].TaxExclusiveOfPrice)

	requireAmount(t, "100.00", total.ListSubTotal, "list")
	requireAmount(t, "90.00", total.SaleSubTotal, "sale")
	requireAmount(t, "40.00", total.NonSaleSubTotal, "non sale")
	requireAmount(t, "80.00", total.PriceSubTotal, "price")
	requireAmount(t, "80.00", total.SubTotal, "sub total")
	requireAmount(t, "13.35", total.SubTotalTax, "sub total tax")
	requireAmount(t, "80.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "0.00", total.DeliveryCost, "delivery")
	requireAmount(t, "80.00", total.Total, "total")
	requireAmount(t, "13.35", total.TotalTax, "total tax")
	requireAmount(t, "100.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "80.00", total.TotalAmount, "total amount")
	require.False(t, total.OrderPromoApplied)
	require.Nil(t, total.AppliedOrderPromo)
}

func TestItemTotalExclusiveTax(t *testing.T) {
	c := itemCart(t)

	total := newCalculator(vat(true)).ApplyTaxToCartItemsAndCalculateItemTotal(context.Background(), c)

	requireAmount(t, "24.00", c.Products[0].GrossPrice, "gross A-001")
	requireAmount(t, "48.00", c.Products[1].GrossPrice, "gross A-002")
	requireAmount(t, "100.00", total.ListSubTotal, "list")
	requireAmount(t, "90.00", total.SaleSubTotal, "sale")
	requireAmount(t, "40.00", total.NonSaleSubTotal, "non sale")
	requireAmount(t, "80.00", total.SubTotal, "sub total")
	requireAmount(t, "16.00", total.SubTotalTax, "sub total tax")
	requireAmount(t, "96.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "80.00", total.Total, "total")
	requireAmount(t, "16.00", total.TotalTax, "total tax")
	requireAmount(t, "120.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "96.00", total.TotalAmount, "total amount")
}

func TestItemTotalSkipsUnpricedAndZeroQuantityLines(t *testing.T) {
	for _, exclusive := range []bool{false, true} {
		c := itemCart(t)
		c.Products[0].Price = decimal.NullDecimal{}
		taxes := vat(exclusive)

		total := newCalculator(taxes).ApplyTaxToCartItemsAndCalculateItemTotal(context.Background(), c)

		require.Len(t, taxes.calls, 1)
		require.Equal(t, "A-002", taxes.calls[0].sku)
		requireAmount(t, "60.00", total.ListSubTotal, "list")
		requireAmount(t, "50.00", total.SaleSubTotal, "sale")
		requireAmount(t, "0.00", total.NonSaleSubTotal, "non sale")
		requireAmount(t, "40.00", total.SubTotal, "sub total")
		if exclusive {
			requireAmount(t, "8.00", total.SubTotalTax, "tax")
			requireAmount(t, "48.00", total.TotalAmount, "total amount")
			requireAmount(t, "72.00", total.ListTotalAmount, "list total amount")
		} else {
			requireAmount(t, "6.67", total.SubTotalTax, "tax")
			requireAmount(t, "40.00", total.TotalAmount, "total amount")
			requireAmount(t, "60.00", total.ListTotalAmount, "list total amount")
		}
	}

	c := itemCart(t)
	c.Products[0].Qty = decimal.Zero
	total := newCalculator(vat(false)).ApplyTaxToCartItemsAndCalculateItemTotal(context.Background(), c)
	requireAmount(t, "40.00", total.SubTotal, "zero qty sub total")
	requireAmount(t, "6.67", total.SubTotalTax, "zero qty tax")
}

func TestItemTotalFallsBackToNoTaxOnLookupFailure(t *testing.T) {
	c := itemCart(t)
	taxes := &fakeTaxes{err: errors.New("db down")}
	var logs bytes.Buffer
	calc := pricing.NewCalculator(taxes, nil, nil, nil, zerolog.New(&logs))

	total := calc.ApplyTaxToCartItemsAndCalculateItemTotal(context.Background(), c)

	requireAmount(t, "0.00", total.SubTotalTax, "tax")
	requireAmount(t, "80.00", total.SubTotalAmount, "amount")
	require.Equal(t, "", c.Products[0].TaxCode)
	require.False(t, c.Products[0].TaxExclusiveOfPrice)
	requireAmount(t, "20.00", c.Products[0].NetPrice, "net")
	require.Contains(t, logs.String(), "tax lookup failed")
	require.Contains(t, logs.String(), "db down")
}

func TestItemTotalTaxesGiftsFromTheirOwnPrice(t *testing.T) {
	c := itemCart(t)
	c.AddGiftToCart("Main", "A-001", "Item 1", dec("1"), "GIFT")
	c.SetGiftPrice("Main", "A-001", dec("20.00"), dec("20.00"))

	total := newCalculator(vat(false)).ApplyTaxToCartItemsAndCalculateItemTotal(context.Background(), c)

	requireAmount(t, "0.00", c.Gifts[0].GrossPrice, "gift gross")
	requireAmount(t, "16.66", c.Products[0].NetPrice, "product net")
	requireAmount(t, "80.00", total.SubTotal, "sub total")
	requireAmount(t, "120.00", total.ListSubTotal, "list includes gift")
}

func deliveryItems(exclusive bool) []cart.CartItem {
	if exclusive {
		return []cart.CartItem{
			line("A-001", "2", "20.00", "22.50", "25.00", "20.00", "24.00", true),
			line("A-002", "1", "40.00", "40.00", "40.00", "40.00", "48.00", true),
		}
	}
	return []cart.CartItem{
		line("A-001", "2", "20.00", "22.50", "25.00", "16.66", "20.00", false),
		line("A-002", "1", "40.00", "40.00", "40.00", "33.33", "40.00", false),
	}
}

func shipping(exclusive bool) pricing.Delivery {
	d := pricing.Delivery{
		Price:        money.Of(dec("10.00")),
		ListPrice:    money.Of(dec("20.00")),
		NetPrice:     dec("8.33"),
		GrossPrice:   dec("10.00"),
		PromoApplied: true,
		AppliedPromo: strPtr("SHIP-50%"),
	}
	if exclusive {
		d.NetPrice = dec("10.00")
		d.GrossPrice = dec("12.00")
		d.TaxExclusiveOfPrice = true
	}
	return d
}

func strPtr(s string) *string { return &s }

func TestCalculateOrderDeliveryInclusiveTax(t *testing.T) {
	d := shipping(false)
	d.Detail = deliveryItems(false)

	total := newCalculator(nil).CalculateOrderDelivery(&d)

	requireAmount(t, "90.00", total.ListSubTotal, "list")
	requireAmount(t, "85.00", total.SaleSubTotal, "sale")
	requireAmount(t, "40.00", total.NonSaleSubTotal, "non sale")
	requireAmount(t, "80.00", total.SubTotal, "sub total")
	requireAmount(t, "13.35", total.SubTotalTax, "sub total tax")
	requireAmount(t, "80.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "20.00", total.DeliveryListCost, "delivery list")
	requireAmount(t, "10.00", total.DeliveryCost, "delivery")
	requireAmount(t, "10.00", total.DeliveryCostAmount, "delivery amount")
	requireAmount(t, "1.67", total.DeliveryTax, "delivery tax")
	require.True(t, total.DeliveryPromoApplied)
	require.Equal(t, "SHIP-50%", *total.AppliedDeliveryPromo)
	requireAmount(t, "90.00", total.Total, "total")
	requireAmount(t, "110.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "90.00", total.TotalAmount, "total amount")
	requireAmount(t, "15.02", total.TotalTax, "total tax")
}

func TestCalculateOrderDeliveryExclusiveTax(t *testing.T) {
	d := shipping(true)
	d.Detail = deliveryItems(true)

	total := newCalculator(nil).CalculateOrderAndDelivery(&pricing.Order{}, &d)

	requireAmount(t, "96.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "16.00", total.SubTotalTax, "sub total tax")
	requireAmount(t, "12.00", total.DeliveryCostAmount, "delivery amount")
	requireAmount(t, "2.00", total.DeliveryTax, "delivery tax")
	requireAmount(t, "90.00", total.Total, "total")
	requireAmount(t, "132.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "108.00", total.TotalAmount, "total amount")
	requireAmount(t, "18.00", total.TotalTax, "total tax")
}

func TestCalculateOrderAndDeliveryCarriesOrderPromotion(t *testing.T) {
	d := shipping(false)
	d.Detail = deliveryItems(false)
	calc := newCalculator(nil)

	plain := calc.CalculateOrderAndDelivery(&pricing.Order{}, &d)
	require.False(t, plain.OrderPromoApplied)
	require.Nil(t, plain.AppliedOrderPromo)

	promoted := calc.CalculateOrderAndDelivery(&pricing.Order{PromoApplied: true, AppliedPromo: strPtr("ORDER5")}, &d)
	require.True(t, promoted.OrderPromoApplied)
	require.Equal(t, "ORDER5", *promoted.AppliedOrderPromo)
	requireAmount(t, money.Format(plain.SubTotal), promoted.SubTotal, "sub total")
	requireAmount(t, money.Format(plain.TotalAmount), promoted.TotalAmount, "total amount")

	empty := calc.CalculateOrderAndDelivery(&pricing.Order{PromoApplied: true, AppliedPromo: strPtr("ORDER5")}, nil)
	require.False(t, empty.OrderPromoApplied)
}

func orderWithDeliveries(exclusive bool) *pricing.Order {
	items := deliveryItems(exclusive)
	first, second := shipping(exclusive), shipping(exclusive)
	first.Detail = items[:1]
	second.Detail = items[1:]
	order := &pricing.Order{
		Deliveries:   []pricing.Delivery{first, second},
		Detail:       items,
		Price:        money.Of(dec("60.00")),
		NetPrice:     dec("50.00"),
		GrossPrice:   dec("60.00"),
		PromoApplied: true,
		AppliedPromo: strPtr("ORDER-25%"),
	}
	if exclusive {
		order.NetPrice = dec("60.00")
		order.GrossPrice = dec("72.00")
	}
	return order
}

func TestCalculateOrderInclusiveTax(t *testing.T) {
	total := newCalculator(nil).CalculateOrder(orderWithDeliveries(false))

	requireAmount(t, "90.00", total.ListSubTotal, "list")
	requireAmount(t, "85.00", total.SaleSubTotal, "sale")
	requireAmount(t, "80.00", total.PriceSubTotal, "price")
	require.True(t, total.OrderPromoApplied)
	require.Equal(t, "ORDER-25%", *total.AppliedOrderPromo)
	requireAmount(t, "60.00", total.SubTotal, "sub total")
	requireAmount(t, "60.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "10.00", total.SubTotalTax, "sub total tax")
	requireAmount(t, "40.00", total.DeliveryListCost, "delivery list")
	requireAmount(t, "20.00", total.DeliveryCost, "delivery")
	requireAmount(t, "3.34", total.DeliveryTax, "delivery tax")
	require.True(t, total.DeliveryPromoApplied)
	require.Equal(t, "SHIP-50%", *total.AppliedDeliveryPromo)
	requireAmount(t, "80.00", total.Total, "total")
	requireAmount(t, "130.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "80.00", total.TotalAmount, "total amount")
	requireAmount(t, "13.34", total.TotalTax, "total tax")
}

func TestCalculateOrderExclusiveTax(t *testing.T) {
	total := newCalculator(nil).CalculateOrder(orderWithDeliveries(true))

	requireAmount(t, "60.00", total.SubTotal, "sub total")
	requireAmount(t, "72.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "12.00", total.SubTotalTax, "sub total tax")
	requireAmount(t, "24.00", total.DeliveryCostAmount, "delivery amount")
	requireAmount(t, "4.00", total.DeliveryTax, "delivery tax")
	requireAmount(t, "80.00", total.Total, "total")
	requireAmount(t, "156.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "96.00", total.TotalAmount, "total amount")
	requireAmount(t, "16.00", total.TotalTax, "total tax")
}

func TestCalculateDraftOrder(t *testing.T) {
	calc := newCalculator(nil)

	draft := orderWithDeliveries(false)
	draft.Deliveries = nil
	total := calc.CalculateOrder(draft)
	requireAmount(t, "60.00", total.SubTotal, "sub total")
	requireAmount(t, "60.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "10.00", total.SubTotalTax, "sub total tax")
	requireAmount(t, "0.00", total.DeliveryCost, "delivery")
	requireAmount(t, "60.00", total.Total, "total")
	requireAmount(t, "90.00", total.ListTotalAmount, "list total amount")
	require.False(t, total.DeliveryPromoApplied)

	draft = orderWithDeliveries(true)
	draft.Deliveries = nil
	total = calc.CalculateOrder(draft)
	requireAmount(t, "60.00", total.SubTotal, "sub total")
	requireAmount(t, "72.00", total.SubTotalAmount, "sub total amount")
	requireAmount(t, "12.00", total.SubTotalTax, "sub total tax")
	requireAmount(t, "108.00", total.ListTotalAmount, "list total amount")
	requireAmount(t, "72.00", total.TotalAmount, "total amount")
}

func TestCalculateOrderWithoutPromotionSumsDeliveries(t *testing.T) {
	order := orderWithDeliveries(false)
	order.PromoApplied = false

	total := newCalculator(nil).CalculateOrder(order)

	require.False(t, total.OrderPromoApplied)
	requireAmount(t, "80.00", total.SubTotal, "sub total")
	requireAmount(t, "13.35", total.SubTotalTax, "sub total tax")
	requireAmount(t, "100.00", total.Total, "total")
}

type fakeDelivery struct {
	result *pricing.Total
	err    error
	calls  int
}

func (f *fakeDelivery) Calculate(_ context.Context, c *cart.ShoppingCart) (*pricing.Total, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	bucket := cart.DefaultBucket("Main")
	c.AddShippingToCart(bucket, "B-001", "Express", dec("1"))
	c.SetShippingPrice("B-001", bucket, dec("20.00"), dec("20.00"))
	return f.result, nil
}

type fakeCustomers struct {
	customer *pricing.Customer
	email    string
	shopID   int64
}

func (f *fakeCustomers) CustomerByEmail(_ context.Context, email string, shopID int64) (*pricing.Customer, error) {
	f.email, f.shopID = email, shopID
	return f.customer, nil
}

type fakePromotions struct {
	customers []*pricing.Customer
	steps     []string
	shop      string
	currency  string
}

func (f *fakePromotions) Instance(_ context.Context, shopCode, currency string) (pricing.PromotionContext, error) {
	f.shop, f.currency = shopCode, currency
	return f, nil
}

func (f *fakePromotions) ApplyItemPromotions(_ context.Context, customer *pricing.Customer, c *cart.ShoppingCart) error {
	f.customers = append(f.customers, customer)
	f.steps = append(f.steps, "item")
	c.SetProductSkuPromotion("Main", "A-001", dec("20.00"), "ITEM-SALE")
	return nil
}

func (f *fakePromotions) ApplyOrderPromotions(_ context.Context, customer *pricing.Customer, _ *cart.ShoppingCart, itemTotal pricing.Total) (pricing.Total, error) {
	f.customers = append(f.customers, customer)
	f.steps = append(f.steps, "order")
	return itemTotal, nil
}

func (f *fakePromotions) ApplyShippingPromotions(_ context.Context, customer *pricing.Customer, c *cart.ShoppingCart, _ pricing.Total) error {
	f.customers = append(f.customers, customer)
	f.steps = append(f.steps, "shipping")
	c.SetShippingPromotion("B-001", cart.DefaultBucket("Main"), dec("10.00"), "SHIP-50%")
	return nil
}

func shoppingCart() *cart.ShoppingCart {
	c := cart.New("EUR", cart.ShoppingContext{
		ShopID:        10,
		ShopCode:      "SHOP10",
		CountryCode:   "GB",
		StateCode:     "GB-CAM",
		CustomerEmail: "bob@doe.com",
	})
	c.AddProductSkuToCart("Main", "A-001", "Item 1", dec("2"))
	c.SetProductSkuPrice("Main", "A-001", dec("22.50"), dec("25.00"))
	c.AddProductSkuToCart("Main", "A-002", "Item 2", dec("1"))
	c.SetProductSkuPrice("Main", "A-002", dec("40.00"), dec("40.00"))
	c.SetCarrierSla("Main", 1)
	// stale shipping is dropped before the delivery strategy runs
	c.AddShippingToCart(cart.DefaultBucket("Main"), "OLD", "Old", dec("1"))
	return c
}

func TestCalculateCart(t *testing.T) {
	for _, tc := range []struct {
		name      string
		exclusive bool
		want      map[string]string
	}{
		{name: "inclusive", want: map[string]string{
			"subTotalAmount": "80.00", "subTotalTax": "13.35", "deliveryCostAmount": "10.00",
			"deliveryTax": "1.67", "listTotalAmount": "110.00", "totalAmount": "90.00", "totalTax": "15.02",
		}},
		{name: "exclusive", exclusive: true, want: map[string]string{
			"subTotalAmount": "96.00", "subTotalTax": "16.00", "deliveryCostAmount": "12.00",
			"deliveryTax": "2.00", "listTotalAmount": "132.00", "totalAmount": "108.00", "totalTax": "18.00",
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			customer := &pricing.Customer{ID: 7, Email: "bob@doe.com"}
			customers := &fakeCustomers{customer: customer}
			promotions := &fakePromotions{}
			taxes := vat(tc.exclusive)
			delivery := &fakeDelivery{result: &pricing.Total{DeliveryCost: dec("20.00")}}
			calc := pricing.NewCalculator(taxes, delivery, promotions, customers, zerolog.Nop())
			c := shoppingCart()

			total, err := calc.CalculateCart(context.Background(), c)
			require.NoError(t, err)

			require.Equal(t, "bob@doe.com", customers.email)
			require.EqualValues(t, 10, customers.shopID)
			require.Equal(t, "SHOP10", promotions.shop)
			require.Equal(t, "EUR", promotions.currency)
			require.Equal(t, []string{"item", "order", "shipping"}, promotions.steps)
			for _, got := range promotions.customers {
				require.Same(t, customer, got)
			}
			require.Equal(t, 1, delivery.calls)

			skus := make([]string, 0, len(taxes.calls))
			for _, call := range taxes.calls {
				skus = append(skus, call.sku)
			}
			require.Equal(t, []string{"A-001", "A-002", "B-001"}, skus)

			require.Len(t, c.Shipping, 1)
			ship := c.Shipping[0]
			require.Equal(t, "B-001", ship.ProductSkuCode)
			require.Equal(t, "VAT", ship.TaxCode)
			require.Equal(t, tc.exclusive, ship.TaxExclusiveOfPrice)

			requireAmount(t, "90.00", total.ListSubTotal, "list")
			requireAmount(t, "85.00", total.SaleSubTotal, "sale")
			requireAmount(t, "40.00", total.NonSaleSubTotal, "non sale")
			requireAmount(t, "80.00", total.PriceSubTotal, "price")
			require.False(t, total.OrderPromoApplied)
			require.Nil(t, total.AppliedOrderPromo)
			requireAmount(t, "80.00", total.SubTotal, "sub total")
			requireAmount(t, tc.want["subTotalAmount"], total.SubTotalAmount, "sub total amount")
			requireAmount(t, tc.want["subTotalTax"], total.SubTotalTax, "sub total tax")
			requireAmount(t, "20.00", total.DeliveryListCost, "delivery list")
			require.True(t, total.DeliveryPromoApplied)
			require.Equal(t, "SHIP-50%", *total.AppliedDeliveryPromo)
			requireAmount(t, "10.00", total.DeliveryCost, "delivery")
			requireAmount(t, tc.want["deliveryCostAmount"], total.DeliveryCostAmount, "delivery amount")
			requireAmount(t, tc.want["deliveryTax"], total.DeliveryTax, "delivery tax")
			requireAmount(t, "90.00", total.Total, "total")
			requireAmount(t, tc.want["listTotalAmount"], total.ListTotalAmount, "list total amount")
			requireAmount(t, tc.want["totalAmount"], total.TotalAmount, "total amount")
			requireAmount(t, tc.want["totalTax"], total.TotalTax, "total tax")
		})
	}
}

func TestCalculateCartAnonymousWithoutCollaborators(t *testing.T) {
	c := shoppingCart()
	c.Context.CustomerEmail = ""

	total, err := pricing.NewCalculator(nil, nil, nil, &fakeCustomers{}, zerolog.Nop()).CalculateCart(context.Background(), c)
	require.NoError(t, err)

	require.Empty(t, c.Shipping)
	requireAmount(t, "85.00", total.SubTotal, "sub total")
	requireAmount(t, "0.00", total.TotalTax, "total tax")
	requireAmount(t, "85.00", total.TotalAmount, "total amount")
}

func TestCalculateCartDeliveryFailure(t *testing.T) {
	boom := errors.New("sla lookup failed")
	calc := pricing.NewCalculator(vat(false), &fakeDelivery{err: boom}, nil, nil, zerolog.Nop())

	_, err := calc.CalculateCart(context.Background(), shoppingCart())
	require.ErrorIs(t, err, boom)
}
