// Package pricing computes cart, order and delivery totals: list, sale and
// price sub totals, tax, delivery cost and grand totals.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

// TaxProvider resolves the tax for a SKU (or shipping SLA guid) in a shop
// and region.
type TaxProvider interface {
	DetermineTax(ctx context.Context, shopCode, currency, countryCode, stateCode, sku string) (tax.Tax, error)
}

// DeliveryCostStrategy prices the shipping of a cart by adding priced
// shipping lines to it. A nil Total means no cost could be determined.
type DeliveryCostStrategy interface {
	Calculate(ctx context.Context, c *cart.ShoppingCart) (*Total, error)
}

// Customer is the shopper a cart is priced for.
type Customer struct {
	ID    int64
	Email string
	Tags  []string
}

// CustomerResolver looks up a registered customer. A nil customer with a
// nil error means the shopper is anonymous.
type CustomerResolver interface {
	CustomerByEmail(ctx context.Context, email string, shopID int64) (*Customer, error)
}

// PromotionContext applies the promotions active in one shop and currency.
type PromotionContext interface {
	ApplyItemPromotions(ctx context.Context, customer *Customer, c *cart.ShoppingCart) error
	ApplyOrderPromotions(ctx context.Context, customer *Customer, c *cart.ShoppingCart, itemTotal Total) (Total, error)
	ApplyShippingPromotions(ctx context.Context, customer *Customer, c *cart.ShoppingCart, orderTotal Total) error
}

// PromotionFactory builds the promotion context for a shop and currency.
type PromotionFactory interface {
	Instance(ctx context.Context, shopCode, currency string) (PromotionContext, error)
}

// Calculator is the amount calculation strategy. Every collaborator is
// optional: without a tax provider lines are untaxed, without promotions
// prices are left as they are and without a delivery strategy shipping is
// free.
type Calculator struct {
	Taxes      TaxProvider
	Delivery   DeliveryCostStrategy
	Promotions PromotionFactory
	Customers  CustomerResolver
	Logger     zerolog.Logger
}

// NewCalculator wires a Calculator.
func NewCalculator(taxes TaxProvider, delivery DeliveryCostStrategy, promotions PromotionFactory, customers CustomerResolver, logger zerolog.Logger) *Calculator {
	return &Calculator{
		Taxes:      taxes,
		Delivery:   delivery,
		Promotions: promotions,
		Customers:  customers,
		Logger:     logger,
	}
}

// CalculateDelivery returns the delivery price, zero when d or its price
// is absent.
func (calc *Calculator) CalculateDelivery(d *Delivery) decimal.Decimal {
	if d == nil || !d.Price.Valid {
		return money.Zero
	}
	return money.Round(d.Price.Decimal)
}

// CalculateOrderDelivery totals one delivery of an order: its lines plus
// its shipping charge.
func (calc *Calculator) CalculateOrderDelivery(d *Delivery) Total {
	if d == nil {
		return ZeroTotal
	}
	t := itemTotal(sumLines(d.Detail))
	if !d.Price.Valid {
		return t
	}
	return withDelivery(t, sumLines([]cart.CartItem{d.shippingLine()}))
}

// CalculateOrderAndDelivery totals delivery d in the context of order. The
// delivery amounts are unchanged; an order level promotion is attributed to
// the result so a single shipment shows the promotion it shipped under.
func (calc *Calculator) CalculateOrderAndDelivery(order *Order, d *Delivery) Total {
	t := calc.CalculateOrderDelivery(d)
	if d == nil || order == nil || !order.PromoApplied {
		return t
	}
	t.OrderPromoApplied = true
	t.AppliedOrderPromo = order.AppliedPromo
	return t
}

// CalculateOrder totals an order. Orders with deliveries sum each
// delivery; draft orders are priced from their lines alone. An order level
// promotion replaces the sub total with the order price.
func (calc *Calculator) CalculateOrder(order *Order) Total {
	start := time.Now()
	defer func() { obs.ObserveCalculation("order", "ok", time.Since(start)) }()

	if order == nil {
		return ZeroTotal
	}
	var t Total
	if len(order.Deliveries) > 0 {
		t = ZeroTotal
		for i := range order.Deliveries {
			t = t.Add(calc.CalculateOrderDelivery(&order.Deliveries[i]))
		}
	} else {
		t = itemTotal(sumLines(order.Detail))
	}
	if order.PromoApplied && order.Price.Valid {
		t.SubTotal = money.Round(order.Price.Decimal)
		t.SubTotalTax = money.Round(order.GrossPrice.Sub(order.NetPrice))
		t.SubTotalAmount = money.Round(order.GrossPrice)
		t.OrderPromoApplied = true
		t.AppliedOrderPromo = order.AppliedPromo
		t = t.refresh()
	}
	return t
}

// ApplyTaxToCartItemsAndCalculateItemTotal writes the tax breakdown onto
// every priced product and gift line and returns the item Total.
func (calc *Calculator) ApplyTaxToCartItemsAndCalculateItemTotal(ctx context.Context, c *cart.ShoppingCart) Total {
	for _, line := range c.Products {
		if !priced(line) {
			continue
		}
		t := calc.determineTax(ctx, c, line.ProductSkuCode)
		net, gross := t.Split(line.Price.Decimal)
		c.SetProductSkuTax(line.SupplierCode, line.ProductSkuCode, net, gross, t.Rate, t.Code, t.Excluded)
	}
	for _, line := range c.Gifts {
		if !priced(line) {
			continue
		}
		t := calc.determineTax(ctx, c, line.ProductSkuCode)
		net, gross := t.Split(line.Price.Decimal)
		c.SetGiftTax(line.SupplierCode, line.ProductSkuCode, net, gross, t.Rate, t.Code, t.Excluded)
	}
	return itemTotal(sumLines(c.Items()))
}

// CalculateCart prices c end to end: item promotions, item tax, order
// promotions, delivery cost, shipping promotions and shipping tax. The cart
// is updated in place with the resulting prices, taxes and shipping lines.
func (calc *Calculator) CalculateCart(ctx context.Context, c *cart.ShoppingCart) (total Total, err error) {
	ctx, span := otel.Tracer("pricing").Start(ctx, "pricing.CalculateCart")
	span.SetAttributes(
		attribute.String("cart.shop", c.Context.ShopCode),
		attribute.String("cart.currency", c.CurrencyCode),
		attribute.Int("cart.lines", len(c.Products)+len(c.Gifts)),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		obs.ObserveCalculation("cart", outcome, time.Since(start))
		span.End()
	}()

	customer, err := calc.customer(ctx, c)
	if err != nil {
		return ZeroTotal, err
	}
	promotions, err := calc.promotionContext(ctx, c)
	if err != nil {
		return ZeroTotal, err
	}

	if err := promotions.ApplyItemPromotions(ctx, customer, c); err != nil {
		return ZeroTotal, fmt.Errorf("apply item promotions: %w", err)
	}
	items := calc.ApplyTaxToCartItemsAndCalculateItemTotal(ctx, c)
	orderTotal, err := promotions.ApplyOrderPromotions(ctx, customer, c, items)
	if err != nil {
		return ZeroTotal, fmt.Errorf("apply order promotions: %w", err)
	}

	c.RemoveShipping()
	if calc.Delivery != nil {
		deliveryTotal, err := calc.Delivery.Calculate(ctx, c)
		if err != nil {
			return ZeroTotal, fmt.Errorf("calculate delivery cost: %w", err)
		}
		if deliveryTotal == nil && len(c.CarrierSlaID) > 0 {
			logger := calc.logger(ctx)
			logger.Debug().Str("cart_guid", c.Guid).Msg("no delivery cost determined")
		}
	}
	if err := promotions.ApplyShippingPromotions(ctx, customer, c, orderTotal); err != nil {
		return ZeroTotal, fmt.Errorf("apply shipping promotions: %w", err)
	}

	for _, line := range c.ShippingList() {
		if !priced(line) {
			continue
		}
		t := calc.determineTax(ctx, c, line.ProductSkuCode)
		net, gross := t.Split(line.Price.Decimal)
		c.SetShippingTax(line.ProductSkuCode, line.DeliveryBucket, net, gross, t.Rate, t.Code, t.Excluded)
	}

	return withDelivery(orderTotal, sumLines(c.ShippingList())), nil
}

func (calc *Calculator) customer(ctx context.Context, c *cart.ShoppingCart) (*Customer, error) {
	email := c.CustomerEmail()
	if calc.Customers == nil || email == "" {
		return nil, nil
	}
	customer, err := calc.Customers.CustomerByEmail(ctx, email, c.Context.ShopID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	return customer, nil
}

func (calc *Calculator) promotionContext(ctx context.Context, c *cart.ShoppingCart) (PromotionContext, error) {
	if calc.Promotions == nil {
		return noPromotions{}, nil
	}
	pc, err := calc.Promotions.Instance(ctx, c.Context.ShopCode, c.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	if pc == nil {
		return noPromotions{}, nil
	}
	return pc, nil
}

// determineTax falls back to tax.None when no provider is configured or
// the lookup fails.
func (calc *Calculator) determineTax(ctx context.Context, c *cart.ShoppingCart, sku string) tax.Tax {
	if calc.Taxes == nil {
		return tax.None
	}
	sc := c.Context
	t, err := calc.Taxes.DetermineTax(ctx, sc.ShopCode, c.CurrencyCode, sc.CountryCode, sc.StateCode, sku)
	if err != nil {
		logger := calc.logger(ctx)
		logger.Warn().Err(err).Str("shop", sc.ShopCode).Str("sku", sku).Msg("tax lookup failed, using no tax")
		return tax.None
	}
	return t
}

func (calc *Calculator) logger(ctx context.Context) zerolog.Logger {
	return obs.WithTrace(ctx, calc.Logger)
}

type noPromotions struct{}

func (noPromotions) ApplyItemPromotions(context.Context, *Customer, *cart.ShoppingCart) error {
	return nil
}

func (noPromotions) ApplyOrderPromotions(_ context.Context, _ *Customer, _ *cart.ShoppingCart, itemTotal Total) (Total, error) {
	return itemTotal, nil
}

func (noPromotions) ApplyShippingPromotions(context.Context, *Customer, *cart.ShoppingCart, Total) error {
	return nil
}
