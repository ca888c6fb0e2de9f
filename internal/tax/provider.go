package tax

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Rule binds a tax to a shop and currency, optionally narrowed by
// country, state and product code.
type Rule struct {
	TaxID       int64
	Code        string
	Rate        decimal.Decimal
	Excluded    bool
	CountryCode string
	StateCode   string
	ProductCode string
}

// RuleSource lists the tax rules configured for a shop and currency.
type RuleSource interface {
	TaxRules(ctx context.Context, shopCode, currency string) ([]Rule, error)
}

// DefaultProvider picks the most specific rule for a SKU and region.
type DefaultProvider struct {
	Rules  RuleSource
	Logger zerolog.Logger
}

// NewDefaultProvider wires a provider over rules.
func NewDefaultProvider(rules RuleSource, logger zerolog.Logger) *DefaultProvider {
	return &DefaultProvider{Rules: rules, Logger: logger}
}

// DetermineTax returns the tax for sku. No matching rule yields None.
func (p *DefaultProvider) DetermineTax(ctx context.Context, shopCode, currency, countryCode, stateCode, sku string) (Tax, error) {
	if p == nil || p.Rules == nil {
		return None, nil
	}
	rules, err := p.Rules.TaxRules(ctx, shopCode, currency)
	if err != nil {
		return None, fmt.Errorf("load tax rules: %w", err)
	}
	best, score := Rule{}, -1
	for _, rule := range rules {
		s := specificity(rule, countryCode, stateCode, sku)
		if s > score {
			best, score = rule, s
		}
	}
	if score < 0 {
		p.Logger.Debug().Str("shop", shopCode).Str("sku", sku).Msg("no tax rule matched")
		return None, nil
	}
	return Tax{Code: best.Code, Rate: best.Rate, Excluded: best.Excluded}, nil
}

// specificity scores how closely rule matches the request, -1 when it does not apply.
func specificity(rule Rule, country, state, sku string) int {
	score := 0
	if rule.ProductCode != "" {
		if !strings.EqualFold(rule.ProductCode, sku) {
			return -1
		}
		score += 4
	}
	if rule.CountryCode != "" {
		if !strings.EqualFold(rule.CountryCode, country) {
			return -1
		}
		score += 1
	}
	if rule.StateCode != "" {
		if !strings.EqualFold(rule.StateCode, state) {
			return -1
		}
		score += 2
	}
	return score
}
