package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func main() {
	shopCode := flag.String("shop", "SHOE", "shop code to seed")
	flag.Parse()

	logger := obs.NewLogger("console", "info")
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect DB")
	}
	defer conn.Close(context.Background())

	var shopID int64
	err = conn.QueryRow(ctx, `
		INSERT INTO shop (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING shop_id`, *shopCode, "Demo "+*shopCode).Scan(&shopID)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to upsert shop")
	}
	logger.Info().Int64("shop_id", shopID).Msg("Using shop")

	s := seeder{conn: conn, shopID: shopID, logger: logger}
	s.taxes(ctx)
	s.slas(ctx)
	s.catalog(ctx)
	s.promotions(ctx)
	s.customers(ctx)

	logger.Info().Msg("Seeding completed successfully!")
}

type seeder struct {
	conn   *pgx.Conn
	shopID int64
	logger zerolog.Logger
}

func (s seeder) exec(ctx context.Context, what, sql string, args ...any) {
	if _, err := s.conn.Exec(ctx, sql, args...); err != nil {
		s.logger.Error().Err(err).Str("row", what).Msg("Failed to seed")
	}
}

func (s seeder) taxes(ctx context.Context) {
	taxes := []struct {
		Currency string
		Code     string
		Rate     string
		Excluded bool
		Country  *string
	}{
		{"EUR", "VAT", "20.00", false, nil},
		{"GBP", "VAT", "20.00", false, ptr("GB")},
		{"USD", "SALES", "8.25", true, ptr("US")},
	}

	s.logger.Info().Msg("Seeding Taxes...")
	s.exec(ctx, "tax reset", `DELETE FROM tax_rule WHERE shop_id = $1`, s.shopID)
	for _, t := range taxes {
		s.exec(ctx, t.Code, `
			INSERT INTO tax_rule (shop_id, currency, code, rate, excluded, country_code)
			VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
			s.shopID, t.Currency, t.Code, t.Rate, t.Excluded, t.Country)
	}
}

func (s seeder) slas(ctx context.Context) {
	slas := []struct {
		GUID string
		Name string
		Type shipping.SlaType
	}{
		{"FREE-STD", "Free standard delivery", shipping.SlaFree},
		{"DHL-EXP", "DHL Express", shipping.SlaWeightVolume},
	}

	s.logger.Info().Msg("Seeding Carrier SLAs...")
	for _, sla := range slas {
		s.exec(ctx, sla.GUID, `
			INSERT INTO carrier_sla (guid, name, sla_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (guid) DO UPDATE SET name = EXCLUDED.name, sla_type = EXCLUDED.sla_type`,
			sla.GUID, sla.Name, string(sla.Type))
	}
}

func (s seeder) catalog(ctx context.Context) {
	var warehouseID int64
	err := s.conn.QueryRow(ctx, `
		INSERT INTO warehouse (code, supplier) VALUES ('MAIN', 'Main')
		ON CONFLICT (code) DO UPDATE SET supplier = EXCLUDED.supplier
		RETURNING warehouse_id`).Scan(&warehouseID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upsert warehouse")
		return
	}
	s.exec(ctx, "shop warehouse", `
		INSERT INTO shop_warehouse (shop_id, warehouse_id, rank) VALUES ($1, $2, 0)
		ON CONFLICT DO NOTHING`, s.shopID, warehouseID)

	products := []struct {
		Sku          string
		ListPrice    string
		SalePrice    *string
		Availability string
		Stock        string
		WeightKg     string
		VolumeM3     string
	}{
		{"SHOE-RUN-42", "120.00", ptr("99.00"), "STANDARD", "25", "0.9", "0.006"},
		{"SHOE-TRAIL-43", "140.00", nil, "BACKORDER", "0", "1.1", "0.007"},
		{"SOCKS-3PK", "12.00", nil, "ALWAYS", "0", "0.15", "0.0005"},
		{"SHOE-GOLD", "900.00", nil, "SHOWROOM", "1", "1.2", "0.008"},
	}

	s.logger.Info().Msg("Seeding Products...")
	for _, p := range products {
		s.exec(ctx, p.Sku+" price", `
			INSERT INTO sku_price (shop_id, currency, sku_code, quantity, list_price, sale_price)
			SELECT $1, 'EUR', $2, 1, $3::numeric, $4::numeric
			WHERE NOT EXISTS (SELECT 1 FROM sku_price WHERE shop_id = $1 AND sku_code = $2 AND currency = 'EUR')`,
			s.shopID, p.Sku, p.ListPrice, p.SalePrice)
		s.exec(ctx, p.Sku+" inventory", `
			INSERT INTO inventory (warehouse_id, sku_code, availability, quantity)
			VALUES ($1, $2, $3, $4::numeric)
			ON CONFLICT (warehouse_id, sku_code) DO UPDATE SET
				availability = EXCLUDED.availability,
				quantity = EXCLUDED.quantity`,
			warehouseID, p.Sku, p.Availability, p.Stock)
		for code, val := range map[string]string{shipping.AttrWeightKg: p.WeightKg, shipping.AttrVolumeM3: p.VolumeM3} {
			s.exec(ctx, p.Sku+" "+code, `
				INSERT INTO sku_attribute (sku_code, attribute_code, val) VALUES ($1, $2, $3)
				ON CONFLICT (sku_code, attribute_code) DO UPDATE SET val = EXCLUDED.val`,
				p.Sku, code, val)
		}
	}

	// Delivery rates are priced as SKUs: the base code per unit of weight or
	// volume and the MAX code for the carrier capacity.
	rates := []struct {
		Code     string
		Quantity string
		Price    string
	}{
		{"FREE-STD", "1", "0.00"},
		{"DHL-EXP_KG", "1", "4.50"},
		{"DHL-EXP_KG", "10", "3.90"},
		{"DHL-EXP_KGMAX", "1", "30.00"},
		{"DHL-EXP_M3", "1", "250.00"},
		{"DHL-EXP_M3MAX", "1", "0.20"},
		{"DHL-EXP_KG_GB", "1", "6.00"},
	}

	s.logger.Info().Msg("Seeding Delivery Rates...")
	for _, r := range rates {
		s.exec(ctx, r.Code, `
			INSERT INTO sku_price (shop_id, currency, sku_code, quantity, list_price)
			SELECT $1, 'EUR', $2, $3::numeric, $4::numeric
			WHERE NOT EXISTS (
				SELECT 1 FROM sku_price
				WHERE shop_id = $1 AND sku_code = $2 AND currency = 'EUR' AND quantity = $3::numeric)`,
			s.shopID, r.Code, r.Quantity, r.Price)
	}
}

func (s seeder) promotions(ctx context.Context) {
	promotions := []struct {
		Code     string
		Type     string
		Kind     string
		Value    string
		MinSpend string
		Coupon   *string
	}{
		{"RUN10", "ITEM", "percent", "10", "0", nil},
		{"ORDER5", "ORDER", "fixed", "5.00", "100.00", nil},
		{"SHIPFREE", "SHIPPING", "percent", "100", "150.00", ptr("SHIPFREE")},
	}

	s.logger.Info().Msg("Seeding Promotions...")
	for _, p := range promotions {
		s.exec(ctx, p.Code, `
			INSERT INTO promotion (shop_id, currency, code, type, kind, value, min_spend, coupon, valid_from, valid_to)
			VALUES ($1, 'EUR', $2, $3, $4, $5::numeric, $6::numeric, $7, NOW(), NOW() + INTERVAL '1 year')
			ON CONFLICT (shop_id, currency, code) DO NOTHING`,
			s.shopID, p.Code, p.Type, p.Kind, p.Value, p.MinSpend, p.Coupon)
	}
}

func (s seeder) customers(ctx context.Context) {
	customers := []struct {
		Email string
		Tags  []string
	}{
		{"budi@example.com", []string{"vip"}},
		{"siti@example.com", nil},
	}

	s.logger.Info().Msg("Seeding Customers...")
	for _, c := range customers {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		s.exec(ctx, c.Email, `
			WITH c AS (
				INSERT INTO customer (email, tags) VALUES ($1, $2)
				ON CONFLICT (lower(email)) DO UPDATE SET tags = EXCLUDED.tags
				RETURNING customer_id
			)
			INSERT INTO customer_shop (customer_id, shop_id)
			SELECT customer_id, $3 FROM c
			ON CONFLICT DO NOTHING`,
			c.Email, tags, s.shopID)
	}
}

func ptr(v string) *string { return &v }
