package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	cachekeys "github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promotion"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

const taxRulesSQL = `
	SELECT t.tax_id, t.code, t.rate::text, t.excluded,
	       COALESCE(t.country_code, ''), COALESCE(t.state_code, ''), COALESCE(t.product_code, '')
	FROM tax_rule t
	JOIN shop s ON s.shop_id = t.shop_id
	WHERE s.code = $1 AND t.currency = $2
	ORDER BY t.tax_id`

// TaxRules lists the tax rules of a shop and currency.
func (s *Store) TaxRules(ctx context.Context, shopCode, currency string) ([]tax.Rule, error) {
	key := cachekeys.KeyTaxRules(s.cachePrefix, shopCode, currency)
	return cached(ctx, s, key, func(ctx context.Context) ([]tax.Rule, error) {
		rows, err := s.db.Query(ctx, taxRulesSQL, shopCode, currency)
		if err != nil {
			return nil, fmt.Errorf("list tax rules: %w", err)
		}
		defer rows.Close()

		rules := []tax.Rule{}
		for rows.Next() {
			var (
				r    tax.Rule
				rate string
			)
			if err := rows.Scan(&r.TaxID, &r.Code, &rate, &r.Excluded, &r.CountryCode, &r.StateCode, &r.ProductCode); err != nil {
				return nil, fmt.Errorf("scan tax rule: %w", err)
			}
			if r.Rate, err = numeric("rate", rate); err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate tax rules: %w", err)
		}
		return rules, nil
	})
}

const promotionRulesSQL = `
	SELECT p.code, p.type, p.kind, p.value::text, p.min_spend::text, COALESCE(p.coupon, ''),
	       p.sku_codes, p.customer_tags,
	       COALESCE(p.gift_supplier, ''), COALESCE(p.gift_sku, ''), COALESCE(p.gift_name, ''),
	       p.gift_qty::text, p.gift_list_price::text, p.valid_from, p.valid_to, p.priority
	FROM promotion p
	JOIN shop s ON s.shop_id = p.shop_id
	WHERE s.code = $1 AND p.currency = $2 AND p.enabled
	ORDER BY p.priority DESC, p.code`

// PromotionRules lists the enabled promotions of a shop and currency.
func (s *Store) PromotionRules(ctx context.Context, shopCode, currency string) ([]promotion.Rule, error) {
	key := cachekeys.KeyPromotions(s.cachePrefix, shopCode, currency)
	return cached(ctx, s, key, func(ctx context.Context) ([]promotion.Rule, error) {
		rows, err := s.db.Query(ctx, promotionRulesSQL, shopCode, currency)
		if err != nil {
			return nil, fmt.Errorf("list promotions: %w", err)
		}
		defer rows.Close()

		rules := []promotion.Rule{}
		for rows.Next() {
			var (
				r                      promotion.Rule
				kind, typ              string
				value, minSpend        string
				giftQty, giftListPrice string
				validFrom, validTo     *time.Time
			)
			if err := rows.Scan(
				&r.Code, &typ, &kind, &value, &minSpend, &r.Coupon,
				&r.SkuCodes, &r.CustomerTags,
				&r.GiftSupplier, &r.GiftSku, &r.GiftName,
				&giftQty, &giftListPrice, &validFrom, &validTo, &r.Priority,
			); err != nil {
				return nil, fmt.Errorf("scan promotion: %w", err)
			}
			for _, col := range []struct {
				name string
				raw  string
				dst  *decimal.Decimal
			}{
				{"value", value, &r.Value},
				{"min_spend", minSpend, &r.MinSpend},
				{"gift_qty", giftQty, &r.GiftQty},
				{"gift_list_price", giftListPrice, &r.GiftListPrice},
			} {
				if *col.dst, err = numeric(col.name, col.raw); err != nil {
					return nil, err
				}
			}
			r.Type = promotion.Type(strings.ToUpper(typ))
			r.Kind = strings.ToLower(kind)
			r.ValidFrom, r.ValidTo = validFrom, validTo
			rules = append(rules, r)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate promotions: %w", err)
		}
		return rules, nil
	})
}

const customerSQL = `
	SELECT c.customer_id, c.email, c.tags
	FROM customer c
	JOIN customer_shop cs ON cs.customer_id = c.customer_id
	WHERE lower(c.email) = lower($1) AND cs.shop_id = $2`

// CustomerByEmail returns the registered customer of a shop, nil for
// anonymous shoppers.
func (s *Store) CustomerByEmail(ctx context.Context, email string, shopID int64) (*pricing.Customer, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	return query(ctx, s, func(ctx context.Context) (*pricing.Customer, error) {
		var c pricing.Customer
		err := s.db.QueryRow(ctx, customerSQL, email, shopID).Scan(&c.ID, &c.Email, &c.Tags)
		if err != nil {
			if noRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("get customer %s: %w", email, err)
		}
		return &c, nil
	})
}
