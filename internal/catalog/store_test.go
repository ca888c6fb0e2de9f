package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/availability"
	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/promotion"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func setupStore(t *testing.T, c *catalog.Cache) (*catalog.Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	store, err := catalog.NewStore(catalog.Config{DB: mock, Cache: c, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return store, mock
}

func newCache(t *testing.T) (*catalog.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute), mr
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNewStoreRequiresDB(t *testing.T) {
	_, err := catalog.NewStore(catalog.Config{})
	require.Error(t, err)
}

func TestTaxRulesReadThroughCache(t *testing.T) {
	c, mr := newCache(t)
	store, mock := setupStore(t, c)
	defer mock.Close()

	mock.ExpectQuery("FROM tax_rule").
		WithArgs("SHOE", "EUR").
		WillReturnRows(pgxmock.NewRows([]string{"tax_id", "code", "rate", "excluded", "country_code", "state_code", "product_code"}).
			AddRow(int64(1), "VAT", "20.00", false, "GB", "", "").
			AddRow(int64(2), "SALES", "8.25", true, "US", "TX", ""))

	ctx := context.Background()
	rules, err := store.TaxRules(ctx, "SHOE", "EUR")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "VAT", rules[0].Code)
	assert.True(t, dec("20").Equal(rules[0].Rate))
	assert.True(t, rules[1].Excluded)
	assert.Equal(t, "TX", rules[1].StateCode)
	assert.True(t, mr.Exists("catalog:tax:shoe:eur"))

	// served from redis, no second query expected
	again, err := store.TaxRules(ctx, "SHOE", "EUR")
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.True(t, dec("8.25").Equal(again[1].Rate))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, store.Invalidate(ctx, "SHOE", "EUR"))
	assert.False(t, mr.Exists("catalog:tax:shoe:eur"))
}

func TestCacheDropsUndecodableEntry(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("catalog:broken", "{not json"))

	var dst []string
	ok, err := c.GetJSON(ctx, "catalog:broken", &dst)
	require.Error(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists("catalog:broken"))

	require.NoError(t, c.SetJSON(ctx, "catalog:list", []string{"a"}))
	ok, err = c.GetJSON(ctx, "catalog:list", &dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"a"}, dst)

	var disabled *catalog.Cache
	ok, err = disabled.GetJSON(ctx, "catalog:list", &dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTaxRulesQueryError(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	mock.ExpectQuery("FROM tax_rule").
		WithArgs("SHOE", "EUR").
		WillReturnError(errors.New("connection refused"))

	_, err := store.TaxRules(context.Background(), "SHOE", "EUR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list tax rules")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRules(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM promotion").
		WithArgs("SHOE", "EUR").
		WillReturnRows(pgxmock.NewRows([]string{
			"code", "type", "kind", "value", "min_spend", "coupon", "sku_codes", "customer_tags",
			"gift_supplier", "gift_sku", "gift_name", "gift_qty", "gift_list_price", "valid_from", "valid_to", "priority",
		}).AddRow(
			"SUMMER", "order", "PERCENT", "10", "50.00", "SUN", []string{}, []string{"vip"},
			"", "", "", "0", "0", &from, (*time.Time)(nil), 5,
		))

	rules, err := store.PromotionRules(context.Background(), "SHOE", "EUR")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	r := rules[0]
	assert.Equal(t, promotion.TypeOrder, r.Type)
	assert.Equal(t, promotion.KindPercent, r.Kind)
	assert.True(t, dec("10").Equal(r.Value))
	assert.True(t, dec("50").Equal(r.MinSpend))
	assert.Equal(t, "SUN", r.Coupon)
	assert.Equal(t, []string{"vip"}, r.CustomerTags)
	require.NotNil(t, r.ValidFrom)
	assert.True(t, from.Equal(*r.ValidFrom))
	assert.Nil(t, r.ValidTo)
	assert.Equal(t, 5, r.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRulesBadNumeric(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	mock.ExpectQuery("FROM promotion").
		WithArgs("SHOE", "EUR").
		WillReturnRows(pgxmock.NewRows([]string{
			"code", "type", "kind", "value", "min_spend", "coupon", "sku_codes", "customer_tags",
			"gift_supplier", "gift_sku", "gift_name", "gift_qty", "gift_list_price", "valid_from", "valid_to", "priority",
		}).AddRow(
			"BROKEN", "ITEM", "fixed", "abc", "0", "", []string{}, []string{},
			"", "", "", "0", "0", (*time.Time)(nil), (*time.Time)(nil), 0,
		))

	_, err := store.PromotionRules(context.Background(), "SHOE", "EUR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value")
}

func TestCustomerByEmail(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery("FROM customer").
		WithArgs("bob@example.com", int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"customer_id", "email", "tags"}).
			AddRow(int64(7), "bob@example.com", []string{"vip"}))
	mock.ExpectQuery("FROM customer").
		WithArgs("ghost@example.com", int64(10)).
		WillReturnError(pgx.ErrNoRows)

	c, err := store.CustomerByEmail(ctx, "bob@example.com", 10)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, []string{"vip"}, c.Tags)

	c, err = store.CustomerByEmail(ctx, "ghost@example.com", 10)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = store.CustomerByEmail(ctx, " ", 10)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarrierSlaByID(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery("FROM carrier_sla").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"carrier_sla_id", "guid", "name", "display_name", "sla_type"}).
			AddRow(int64(3), "SLA-3", "Courier", "Next day", "weight_volume"))
	mock.ExpectQuery("FROM carrier_sla").
		WithArgs(int64(4)).
		WillReturnError(pgx.ErrNoRows)

	sla, err := store.CarrierSlaByID(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, sla)
	assert.Equal(t, shipping.SlaWeightVolume, sla.Type)
	assert.Equal(t, "Next day", sla.Label())

	sla, err = store.CarrierSlaByID(ctx, 4)
	require.NoError(t, err)
	assert.Nil(t, sla)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeterminePricingPolicy(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery("FROM pricing_policy").
		WithArgs("SHOE", "EUR", "bob@example.com", "GB", "").
		WillReturnRows(pgxmock.NewRows([]string{"policy_id", "policy_type"}).AddRow("B2B", "CUSTOMER"))
	mock.ExpectQuery("FROM pricing_policy").
		WithArgs("SHOE", "EUR", "", "GB", "").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.DeterminePricingPolicy(ctx, "SHOE", "EUR", "bob@example.com", "GB", "")
	require.NoError(t, err)
	assert.Equal(t, "B2B", p.ID)

	p, err = store.DeterminePricingPolicy(ctx, "SHOE", "EUR", "", "GB", "")
	require.NoError(t, err)
	assert.Equal(t, shipping.DefaultPolicy, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var priceColumns = []string{"sku_price_id", "sku_code", "quantity", "list_price", "sale_price"}

func TestMinimalPriceFallsBackToMasterShop(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	q := shipping.PriceQuery{
		SkuCode: "SLA-3_GB", ShopID: 20, FallbackShopID: 10, Currency: "EUR",
		Quantity: dec("1"), PolicyID: "P1", Supplier: "Main",
	}
	mock.ExpectQuery("FROM sku_price").
		WithArgs("SLA-3_GB", int64(20), "EUR", "1", "P1", "Main").
		WillReturnError(pgx.ErrNoRows)
	sale := "7.50"
	mock.ExpectQuery("FROM sku_price").
		WithArgs("SLA-3_GB", int64(10), "EUR", "1", "P1", "Main").
		WillReturnRows(pgxmock.NewRows(priceColumns).AddRow(int64(55), "SLA-3_GB", "1", "9.00", &sale))

	p, err := store.MinimalPrice(context.Background(), q)
	require.NoError(t, err)
	require.True(t, p.Priced())
	assert.True(t, dec("9").Equal(p.ListPrice))
	assert.True(t, dec("7.5").Equal(p.Effective()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMinimalPriceNotFound(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	q := shipping.PriceQuery{SkuCode: "X", ShopID: 10, Currency: "EUR", Quantity: dec("2147483647.00")}
	mock.ExpectQuery("FROM sku_price").
		WithArgs("X", int64(10), "EUR", "2147483647", shipping.DefaultPolicy.ID, "").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.MinimalPrice(context.Background(), q)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, p.Priced())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMinimalPriceWithoutSale(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	q := shipping.PriceQuery{SkuCode: "A", ShopID: 10, Currency: "EUR", Quantity: dec("3"), PolicyID: "P1"}
	mock.ExpectQuery("FROM sku_price").
		WithArgs("A", int64(10), "EUR", "3", "P1", "").
		WillReturnRows(pgxmock.NewRows(priceColumns).AddRow(int64(9), "A", "1", "4.00", (*string)(nil)))

	p, err := store.MinimalPrice(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, p.SalePrice.Valid)
	assert.True(t, dec("4").Equal(p.Effective()))
}

func TestB2BStrictPriceActive(t *testing.T) {
	c, mr := newCache(t)
	store, mock := setupStore(t, c)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery("FROM shop").
		WithArgs(int64(20)).
		WillReturnRows(pgxmock.NewRows([]string{"b2b_strict_price"}).AddRow(true))
	mock.ExpectQuery("FROM shop").
		WithArgs(int64(21)).
		WillReturnError(pgx.ErrNoRows)

	strict, err := store.B2BStrictPriceActive(ctx, 20)
	require.NoError(t, err)
	assert.True(t, strict)
	strict, err = store.B2BStrictPriceActive(ctx, 20)
	require.NoError(t, err)
	assert.True(t, strict)

	strict, err = store.B2BStrictPriceActive(ctx, 21)
	require.NoError(t, err)
	assert.False(t, strict)
	assert.True(t, mr.Exists("catalog:shop:21"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSkuAttributes(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	mock.ExpectQuery("FROM sku_attribute").
		WithArgs("A-001").
		WillReturnRows(pgxmock.NewRows([]string{"attribute_code", "val"}).
			AddRow(shipping.AttrWeightKg, "1.5").
			AddRow(shipping.AttrVolumeM3, "0.2"))

	attrs, err := store.SkuAttributes(context.Background(), "A-001")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{shipping.AttrWeightKg: "1.5", shipping.AttrVolumeM3: "0.2"}, attrs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseAndInventory(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()
	ctx := context.Background()

	release := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM warehouse").
		WithArgs(int64(10), "Main").
		WillReturnRows(pgxmock.NewRows([]string{"warehouse_id", "code"}).AddRow(int64(1), "WH1"))
	mock.ExpectQuery("FROM inventory").
		WithArgs(int64(1), "A-001").
		WillReturnRows(pgxmock.NewRows([]string{"sku_code", "availability", "quantity", "reserved", "release_date"}).
			AddRow("A-001", "BACKORDER", "5", "2", &release))
	mock.ExpectQuery("FROM inventory").
		WithArgs(int64(1), "A-404").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM warehouse").
		WithArgs(int64(10), "Nobody").
		WillReturnError(pgx.ErrNoRows)

	wh, err := store.WarehouseForSupplier(ctx, 10, "Main")
	require.NoError(t, err)
	require.NotNil(t, wh)
	assert.Equal(t, "WH1", wh.Code)

	inv, err := store.InventoryBySku(ctx, wh.ID, "A-001")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, availability.Backorder, inv.Availability)
	assert.True(t, dec("3").Equal(inv.AvailableToSell()))
	require.NotNil(t, inv.ReleaseDate)

	inv, err = store.InventoryBySku(ctx, wh.ID, "A-404")
	require.NoError(t, err)
	assert.Nil(t, inv)

	wh, err = store.WarehouseForSupplier(ctx, 10, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, wh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFeedsAvailabilityStrategy(t *testing.T) {
	store, mock := setupStore(t, nil)
	defer mock.Close()

	mock.ExpectQuery("FROM warehouse").
		WithArgs(int64(10), "Main").
		WillReturnRows(pgxmock.NewRows([]string{"warehouse_id", "code"}).AddRow(int64(1), "WH1"))
	mock.ExpectQuery("FROM inventory").
		WithArgs(int64(1), "A-001").
		WillReturnRows(pgxmock.NewRows([]string{"sku_code", "availability", "quantity", "reserved", "release_date"}).
			AddRow("A-001", "ALWAYS", "0", "0", (*time.Time)(nil)))

	strategy := &availability.Default{Warehouses: store, Inventory: store, Logger: zerolog.Nop()}
	m, err := strategy.AvailabilityModel(context.Background(), 10, "A-001", "Main")
	require.NoError(t, err)
	assert.True(t, m.Perpetual)
	assert.True(t, availability.Unlimited.Equal(m.AvailableToSellQuantity("A-001")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakerStopsQueries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := catalog.NewStore(catalog.Config{
		DB:    mock,
		Guard: resilience.Guard{Breaker: resilience.NewBreaker(1, 0.5, time.Minute).WithTarget("catalog_test")},
	})
	require.NoError(t, err)

	mock.ExpectQuery("FROM sku_attribute").
		WithArgs("A").
		WillReturnError(errors.New("connection reset"))

	_, err = store.SkuAttributes(context.Background(), "A")
	require.Error(t, err)
	_, err = store.SkuAttributes(context.Background(), "A")
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	assert.NoError(t, mock.ExpectationsWereMet())
}
