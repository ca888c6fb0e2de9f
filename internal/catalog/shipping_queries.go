package catalog

import (
	"context"
	"fmt"
	"strings"

	cachekeys "github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

const carrierSlaSQL = `
	SELECT carrier_sla_id, guid, name, COALESCE(display_name, ''), sla_type
	FROM carrier_sla
	WHERE carrier_sla_id = $1`

// CarrierSlaByID returns the SLA with id, nil when unknown.
func (s *Store) CarrierSlaByID(ctx context.Context, id int64) (*shipping.CarrierSla, error) {
	key := cachekeys.KeyCarrierSla(s.cachePrefix, id)
	return cached(ctx, s, key, func(ctx context.Context) (*shipping.CarrierSla, error) {
		var (
			sla     shipping.CarrierSla
			slaType string
		)
		err := s.db.QueryRow(ctx, carrierSlaSQL, id).Scan(&sla.ID, &sla.GUID, &sla.Name, &sla.DisplayName, &slaType)
		if err != nil {
			if noRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("get carrier sla %d: %w", id, err)
		}
		sla.Type = shipping.SlaType(strings.ToUpper(slaType))
		return &sla, nil
	})
}

// Policies are matched from the most specific (customer email) to the
// least (shop wide).
const pricingPolicySQL = `
	SELECT p.policy_id, p.policy_type
	FROM pricing_policy p
	JOIN shop s ON s.shop_id = p.shop_id
	WHERE s.code = $1 AND p.currency = $2
	  AND (p.customer_email IS NULL OR lower(p.customer_email) = lower($3))
	  AND (p.country_code IS NULL OR p.country_code = $4)
	  AND (p.state_code IS NULL OR p.state_code = $5)
	ORDER BY (p.customer_email IS NOT NULL) DESC,
	         (p.state_code IS NOT NULL) DESC,
	         (p.country_code IS NOT NULL) DESC,
	         p.policy_id
	LIMIT 1`

// DeterminePricingPolicy picks the most specific policy, DefaultPolicy
// when none is configured.
func (s *Store) DeterminePricingPolicy(ctx context.Context, shopCode, currency, email, countryCode, stateCode string) (shipping.PricingPolicy, error) {
	return query(ctx, s, func(ctx context.Context) (shipping.PricingPolicy, error) {
		var p shipping.PricingPolicy
		err := s.db.QueryRow(ctx, pricingPolicySQL, shopCode, currency, email, countryCode, stateCode).Scan(&p.ID, &p.Type)
		if err != nil {
			if noRows(err) {
				return shipping.DefaultPolicy, nil
			}
			return shipping.PricingPolicy{}, fmt.Errorf("determine pricing policy: %w", err)
		}
		return p, nil
	})
}

// The highest tier not above the requested quantity wins, cheapest first
// within a tier.
const minimalPriceSQL = `
	SELECT sku_price_id, sku_code, quantity::text, list_price::text, sale_price::text
	FROM sku_price
	WHERE sku_code = $1 AND shop_id = $2 AND currency = $3
	  AND quantity <= $4::numeric
	  AND (policy_id = $5 OR policy_id = 'DEFAULT')
	  AND (supplier = $6 OR supplier = '')
	ORDER BY quantity DESC,
	         (policy_id = $5) DESC,
	         COALESCE(sale_price, list_price) ASC
	LIMIT 1`

// MinimalPrice returns the price tier matching q, trying q.FallbackShopID
// when the shop has none. Nil means not priced.
func (s *Store) MinimalPrice(ctx context.Context, q shipping.PriceQuery) (*shipping.SkuPrice, error) {
	p, err := s.minimalPrice(ctx, q, q.ShopID)
	if err != nil || p != nil || q.FallbackShopID <= 0 || q.FallbackShopID == q.ShopID {
		return p, err
	}
	return s.minimalPrice(ctx, q, q.FallbackShopID)
}

func (s *Store) minimalPrice(ctx context.Context, q shipping.PriceQuery, shopID int64) (*shipping.SkuPrice, error) {
	return query(ctx, s, func(ctx context.Context) (*shipping.SkuPrice, error) {
		policy := q.PolicyID
		if policy == "" {
			policy = shipping.DefaultPolicy.ID
		}
		var (
			p              shipping.SkuPrice
			qty, listPrice string
			salePrice      *string
		)
		err := s.db.QueryRow(ctx, minimalPriceSQL, q.SkuCode, shopID, q.Currency, q.Quantity.String(), policy, q.Supplier).
			Scan(&p.SkuPriceID, &p.SkuCode, &qty, &listPrice, &salePrice)
		if err != nil {
			if noRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("minimal price of %s in shop %d: %w", q.SkuCode, shopID, err)
		}
		if p.Quantity, err = numeric("quantity", qty); err != nil {
			return nil, err
		}
		if p.ListPrice, err = numeric("list_price", listPrice); err != nil {
			return nil, err
		}
		if p.SalePrice, err = nullNumeric("sale_price", salePrice); err != nil {
			return nil, err
		}
		return &p, nil
	})
}

const shopStrictSQL = `SELECT b2b_strict_price FROM shop WHERE shop_id = $1`

// B2BStrictPriceActive reports whether a shop only sells at its own prices.
// Unknown shops are not strict.
func (s *Store) B2BStrictPriceActive(ctx context.Context, shopID int64) (bool, error) {
	key := cachekeys.KeyShop(s.cachePrefix, shopID)
	return cached(ctx, s, key, func(ctx context.Context) (bool, error) {
		var strict bool
		if err := s.db.QueryRow(ctx, shopStrictSQL, shopID).Scan(&strict); err != nil {
			if noRows(err) {
				return false, nil
			}
			return false, fmt.Errorf("get shop %d: %w", shopID, err)
		}
		return strict, nil
	})
}

const skuAttributesSQL = `
	SELECT attribute_code, val
	FROM sku_attribute
	WHERE sku_code = $1`

// SkuAttributes returns the attribute values of a SKU keyed by code.
func (s *Store) SkuAttributes(ctx context.Context, skuCode string) (map[string]string, error) {
	return query(ctx, s, func(ctx context.Context) (map[string]string, error) {
		rows, err := s.db.Query(ctx, skuAttributesSQL, skuCode)
		if err != nil {
			return nil, fmt.Errorf("list attributes of %s: %w", skuCode, err)
		}
		defer rows.Close()

		attrs := map[string]string{}
		for rows.Next() {
			var code, val string
			if err := rows.Scan(&code, &val); err != nil {
				return nil, fmt.Errorf("scan attribute: %w", err)
			}
			attrs[code] = val
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate attributes: %w", err)
		}
		return attrs, nil
	})
}
