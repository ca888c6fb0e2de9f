package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/toko-pricing/internal/availability"
)

const warehouseSQL = `
	SELECT w.warehouse_id, w.code
	FROM warehouse w
	JOIN shop_warehouse sw ON sw.warehouse_id = w.warehouse_id
	WHERE sw.shop_id = $1 AND w.supplier = $2
	ORDER BY sw.rank, w.warehouse_id
	LIMIT 1`

// WarehouseForSupplier returns the first ranked warehouse of supplier
// serving shopID, nil when none.
func (s *Store) WarehouseForSupplier(ctx context.Context, shopID int64, supplier string) (*availability.Warehouse, error) {
	return query(ctx, s, func(ctx context.Context) (*availability.Warehouse, error) {
		var w availability.Warehouse
		if err := s.db.QueryRow(ctx, warehouseSQL, shopID, supplier).Scan(&w.ID, &w.Code); err != nil {
			if noRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("warehouse of %s in shop %d: %w", supplier, shopID, err)
		}
		return &w, nil
	})
}

const inventorySQL = `
	SELECT sku_code, availability, quantity::text, reserved::text, release_date
	FROM inventory
	WHERE warehouse_id = $1 AND sku_code = $2`

// InventoryBySku returns the stock record of a SKU, nil when not stocked.
func (s *Store) InventoryBySku(ctx context.Context, warehouseID int64, skuCode string) (*availability.Inventory, error) {
	return query(ctx, s, func(ctx context.Context) (*availability.Inventory, error) {
		var (
			inv           availability.Inventory
			kind          string
			qty, reserved string
			release       *time.Time
		)
		err := s.db.QueryRow(ctx, inventorySQL, warehouseID, skuCode).
			Scan(&inv.SkuCode, &kind, &qty, &reserved, &release)
		if err != nil {
			if noRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("inventory of %s in warehouse %d: %w", skuCode, warehouseID, err)
		}
		if inv.Quantity, err = numeric("quantity", qty); err != nil {
			return nil, err
		}
		if inv.Reserved, err = numeric("reserved", reserved); err != nil {
			return nil, err
		}
		inv.Availability = availability.Parse(kind)
		inv.ReleaseDate = release
		return &inv, nil
	})
}
