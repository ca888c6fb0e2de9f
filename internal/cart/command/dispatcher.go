package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/availability"
	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

var one = decimal.NewFromInt(1)

// Dispatcher executes commands against a cart. Availability, Prices and
// Policies are optional; without them stock is not checked and lines keep
// their prices.
type Dispatcher struct {
	Availability availability.Strategy
	Prices       shipping.PriceService
	Policies     shipping.PolicyProvider
	Logger       zerolog.Logger

	validate *validator.Validate
}

// NewDispatcher wires a dispatcher with a struct validator.
func NewDispatcher(avail availability.Strategy, prices shipping.PriceService, policies shipping.PolicyProvider, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		Availability: avail,
		Prices:       prices,
		Policies:     policies,
		Logger:       logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Execute applies cmd to c and reports whether the cart changed. Product
// lines are re-priced after every change.
func (d *Dispatcher) Execute(ctx context.Context, c *cart.ShoppingCart, cmd Command) (bool, error) {
	if cmd == nil {
		obs.ObserveCommand("nil", "invalid")
		return false, fmt.Errorf("%w: nil command", ErrInvalidCommand)
	}
	if err := d.validator().Struct(cmd); err != nil {
		obs.ObserveCommand(cmd.Name(), "invalid")
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, cmd.Name(), err)
	}

	changed, err := d.apply(ctx, c, cmd)
	if err == nil && changed {
		err = d.reprice(ctx, c)
	}
	switch {
	case err == nil:
		obs.ObserveCommand(cmd.Name(), "ok")
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidCommand):
		obs.ObserveCommand(cmd.Name(), "rejected")
	default:
		obs.ObserveCommand(cmd.Name(), "error")
	}
	if err != nil {
		return changed, err
	}
	d.Logger.Debug().Str("command", cmd.Name()).Bool("changed", changed).Str("cart_guid", c.Guid).Msg("cart command applied")
	return changed, nil
}

func (d *Dispatcher) apply(ctx context.Context, c *cart.ShoppingCart, cmd Command) (bool, error) {
	switch cmd := cmd.(type) {
	case AddToCart:
		qty := ParseQuantity(cmd.Qty, one)
		wanted := c.ProductSkuQuantity(cmd.Supplier, cmd.Sku).Add(qty)
		if err := d.checkStock(ctx, c, cmd.Supplier, cmd.Sku, wanted); err != nil {
			return false, err
		}
		c.AddProductSkuToCart(cmd.Supplier, cmd.Sku, cmd.ProductName, qty)
		return true, nil
	case RemoveAllSku:
		return c.RemoveCartItem(cmd.Supplier, cmd.Sku), nil
	case RemoveOneSku:
		return c.RemoveCartItemQuantity(cmd.Supplier, cmd.Sku, one), nil
	case SetQty:
		qty, err := decimal.NewFromString(cmd.Qty)
		if err != nil || qty.IsNegative() {
			qty = one
		}
		if qty.IsPositive() {
			if err := d.checkStock(ctx, c, cmd.Supplier, cmd.Sku, qty); err != nil {
				return false, err
			}
		}
		return c.SetProductSkuQuantity(cmd.Supplier, cmd.Sku, qty), nil
	case AddCoupon:
		return c.AddCoupon(cmd.Code), nil
	case RemoveCoupon:
		return c.RemoveCoupon(cmd.Code), nil
	case Clean:
		c.Clean()
		return true, nil
	case ViewSku:
		c.Context.ViewSku(cmd.Sku, cmd.Supplier)
		return false, nil
	case ViewCategory:
		c.Context.ViewCategory(cmd.Category)
		return false, nil
	case SetCarrierSla:
		c.SetCarrierSla(cmd.Supplier, cmd.SlaID)
		c.RemoveShipping()
		return true, nil
	case SetLocation:
		return c.SetDeliveryLocation(cmd.CountryCode, cmd.StateCode), nil
	case SetOrderMessage:
		return c.SetOrderMessage(cmd.Message), nil
	case SetOrderDetail:
		return c.SetOrderDetail(cmd.Key, cmd.Value), nil
	}
	return false, fmt.Errorf("%w: unsupported command %T", ErrInvalidCommand, cmd)
}

// checkStock rejects quantities the shop cannot sell. Only STANDARD stock
// is capped by the quantity left to sell.
func (d *Dispatcher) checkStock(ctx context.Context, c *cart.ShoppingCart, supplier, sku string, wanted decimal.Decimal) error {
	if d.Availability == nil {
		return nil
	}
	m, err := d.Availability.AvailabilityModel(ctx, c.Context.ShopID, sku, supplier)
	if err != nil {
		return fmt.Errorf("availability of %s: %w", sku, err)
	}
	if !m.Available {
		return fmt.Errorf("%w: %s (%s)", ErrUnavailable, sku, m.Availability)
	}
	if m.Availability == availability.Standard {
		left := m.AvailableToSellQuantity(sku)
		if wanted.GreaterThan(left) {
			return fmt.Errorf("%w: %s wants %s, %s left", ErrInsufficientStock, sku, wanted, left)
		}
	}
	return nil
}

// reprice sets sale and list prices of every product line from the price
// tier matching its quantity. Unpriced lines keep their current prices.
func (d *Dispatcher) reprice(ctx context.Context, c *cart.ShoppingCart) error {
	if d.Prices == nil {
		return nil
	}
	policy := shipping.DefaultPolicy
	if d.Policies != nil {
		p, err := d.Policies.DeterminePricingPolicy(ctx, c.Context.ShopCode, c.CurrencyCode, c.CustomerEmail(), c.Context.CountryCode, c.Context.StateCode)
		if err != nil {
			return fmt.Errorf("pricing policy: %w", err)
		}
		policy = p
	}
	shopID := c.Context.EffectiveCustomerShopID()
	var fallback int64
	if shopID != c.Context.ShopID {
		fallback = c.Context.ShopID
	}
	for _, item := range c.Items() {
		if item.Gift {
			continue
		}
		price, err := d.Prices.MinimalPrice(ctx, shipping.PriceQuery{
			SkuCode:        item.ProductSkuCode,
			ShopID:         shopID,
			FallbackShopID: fallback,
			Currency:       c.CurrencyCode,
			Quantity:       item.Qty,
			PolicyID:       policy.ID,
			Supplier:       item.SupplierCode,
		})
		if err != nil {
			return fmt.Errorf("price of %s: %w", item.ProductSkuCode, err)
		}
		if !price.Priced() {
			d.Logger.Warn().Str("sku", item.ProductSkuCode).Str("supplier", item.SupplierCode).Msg("no price for cart line")
			continue
		}
		c.SetProductSkuPrice(item.SupplierCode, item.ProductSkuCode, price.Effective(), price.ListPrice)
	}
	return nil
}

func (d *Dispatcher) validator() *validator.Validate {
	if d.validate == nil {
		d.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return d.validate
}
