package availability

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/obs"
)

// WarehouseService finds the warehouse serving a supplier in a shop. A nil
// warehouse with a nil error means none is configured.
type WarehouseService interface {
	WarehouseForSupplier(ctx context.Context, shopID int64, supplier string) (*Warehouse, error)
}

// InventoryResolver finds the inventory record of a SKU. A nil record with a
// nil error means the SKU is not stocked.
type InventoryResolver interface {
	InventoryBySku(ctx context.Context, warehouseID int64, skuCode string) (*Inventory, error)
}

// Strategy resolves availability models.
type Strategy interface {
	AvailabilityModel(ctx context.Context, shopID int64, skuCode, supplier string) (Model, error)
	ProductAvailabilityModel(ctx context.Context, shopID int64, skuCodes []string, supplier string) (Model, error)
}

// Default reads warehouse inventory. Missing warehouses or records yield an
// NA model, never an error.
type Default struct {
	Warehouses WarehouseService
	Inventory  InventoryResolver
	Logger     zerolog.Logger
}

// AvailabilityModel returns the model of a single SKU.
func (d *Default) AvailabilityModel(ctx context.Context, shopID int64, skuCode, supplier string) (Model, error) {
	inv, err := d.lookup(ctx, shopID, skuCode, supplier)
	if err != nil {
		return Model{}, err
	}
	m := modelFor(skuCode, inv)
	obs.ObserveAvailability(string(m.Availability))
	return m, nil
}

// ProductAvailabilityModel aggregates the SKUs of a product. The default
// SKU is the first available one, else the first with a record; its record
// drives the flags. Quantities of every SKU are reported.
func (d *Default) ProductAvailabilityModel(ctx context.Context, shopID int64, skuCodes []string, supplier string) (Model, error) {
	var (
		chosen   *Model
		fallback *Model
	)
	quantities := make(map[string]decimal.Decimal, len(skuCodes))
	for _, sku := range skuCodes {
		inv, err := d.lookup(ctx, shopID, sku, supplier)
		if err != nil {
			return Model{}, err
		}
		m := modelFor(sku, inv)
		quantities[sku] = m.AvailableToSellQuantity(sku)
		if inv == nil {
			continue
		}
		if chosen == nil && m.Available {
			chosen = &m
		}
		if fallback == nil {
			fallback = &m
		}
	}
	if chosen == nil {
		chosen = fallback
	}
	result := Model{Availability: NA}
	if chosen != nil {
		result = *chosen
	}
	result.AvailableToSell = quantities
	obs.ObserveAvailability(string(result.Availability))
	return result, nil
}

func (d *Default) lookup(ctx context.Context, shopID int64, skuCode, supplier string) (*Inventory, error) {
	wh, err := d.Warehouses.WarehouseForSupplier(ctx, shopID, supplier)
	if err != nil {
		return nil, fmt.Errorf("warehouse for shop %d supplier %s: %w", shopID, supplier, err)
	}
	if wh == nil {
		d.Logger.Debug().Int64("shop", shopID).Str("supplier", supplier).Msg("no warehouse")
		return nil, nil
	}
	inv, err := d.Inventory.InventoryBySku(ctx, wh.ID, skuCode)
	if err != nil {
		return nil, fmt.Errorf("inventory %s in warehouse %s: %w", skuCode, wh.Code, err)
	}
	return inv, nil
}

// Perpetual reports every SKU as always available without touching
// inventory. Shops selling made-to-order goods register it.
type Perpetual struct{}

// AvailabilityModel returns an ALWAYS model for skuCode.
func (Perpetual) AvailabilityModel(_ context.Context, _ int64, skuCode, _ string) (Model, error) {
	m := modelFor(skuCode, &Inventory{SkuCode: skuCode, Availability: Always})
	obs.ObserveAvailability(string(m.Availability))
	return m, nil
}

// ProductAvailabilityModel returns an ALWAYS model defaulting to the first SKU.
func (Perpetual) ProductAvailabilityModel(_ context.Context, _ int64, skuCodes []string, _ string) (Model, error) {
	if len(skuCodes) == 0 {
		return Model{Availability: NA, AvailableToSell: map[string]decimal.Decimal{}}, nil
	}
	m := modelFor(skuCodes[0], &Inventory{SkuCode: skuCodes[0], Availability: Always})
	for _, sku := range skuCodes[1:] {
		m.AvailableToSell[sku] = Unlimited
	}
	obs.ObserveAvailability(string(m.Availability))
	return m, nil
}

// ByName returns the strategy registered under name: "default" or
// "perpetual".
func ByName(name string, fallback Strategy) (Strategy, error) {
	switch name {
	case "", "default":
		return fallback, nil
	case "perpetual":
		return Perpetual{}, nil
	default:
		return nil, fmt.Errorf("unknown availability strategy %q", name)
	}
}

// Registry routes lookups to a shop specific strategy, falling back to a
// default one.
type Registry struct {
	mu       sync.RWMutex
	fallback Strategy
	custom   map[int64]Strategy
}

// NewRegistry returns a registry using fallback for unregistered shops.
func NewRegistry(fallback Strategy) *Registry {
	return &Registry{fallback: fallback, custom: map[int64]Strategy{}}
}

// Register sets the strategy of shopID. A nil strategy restores the default.
func (r *Registry) Register(shopID int64, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s == nil {
		delete(r.custom, shopID)
		return
	}
	r.custom[shopID] = s
}

// For returns the strategy serving shopID.
func (r *Registry) For(shopID int64) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.custom[shopID]; ok {
		return s
	}
	return r.fallback
}

// AvailabilityModel delegates to the strategy of shopID.
func (r *Registry) AvailabilityModel(ctx context.Context, shopID int64, skuCode, supplier string) (Model, error) {
	return r.For(shopID).AvailabilityModel(ctx, shopID, skuCode, supplier)
}

// ProductAvailabilityModel delegates to the strategy of shopID.
func (r *Registry) ProductAvailabilityModel(ctx context.Context, shopID int64, skuCodes []string, supplier string) (Model, error) {
	return r.For(shopID).ProductAvailabilityModel(ctx, shopID, skuCodes, supplier)
}
