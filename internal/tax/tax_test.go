package tax_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

func TestSplitInclusive(t *testing.T) {
	vat := tax.Tax{Code: "VAT", Rate: decimal.NewFromInt(20)}

	net, gross := vat.Split(decimal.RequireFromString("20.00"))
	require.Equal(t, "16.66", money.Format(net))
	require.Equal(t, "20.00", money.Format(gross))

	net, gross = vat.Split(decimal.RequireFromString("40.00"))
	require.Equal(t, "33.33", money.Format(net))
	require.Equal(t, "40.00", money.Format(gross))

	net, _ = vat.Split(decimal.RequireFromString("60.00"))
	require.Equal(t, "50.00", money.Format(net))
}

func TestSplitExclusive(t *testing.T) {
	vat := tax.Tax{Code: "VAT", Rate: decimal.NewFromInt(20), Excluded: true}

	net, gross := vat.Split(decimal.RequireFromString("20.00"))
	require.Equal(t, "20.00", money.Format(net))
	require.Equal(t, "24.00", money.Format(gross))

	net, gross = tax.None.Split(decimal.RequireFromString("9.99"))
	require.True(t, net.Equal(gross))
}

func TestGrossUp(t *testing.T) {
	got := tax.GrossUp(decimal.RequireFromString("50.00"), decimal.RequireFromString("20.00"), decimal.RequireFromString("24.00"), true)
	require.Equal(t, "60.00", money.Format(got))

	got = tax.GrossUp(decimal.RequireFromString("50.00"), decimal.RequireFromString("16.66"), decimal.RequireFromString("20.00"), false)
	require.Equal(t, "50.00", money.Format(got))

	got = tax.GrossUp(decimal.RequireFromString("50.00"), money.Zero, money.Zero, true)
	require.Equal(t, "50.00", money.Format(got))
}

type stubRules struct {
	rules []tax.Rule
	err   error
}

func (s stubRules) TaxRules(context.Context, string, string) ([]tax.Rule, error) {
	return s.rules, s.err
}

func TestDefaultProviderPicksMostSpecificRule(t *testing.T) {
	rules := stubRules{rules: []tax.Rule{
		{TaxID: 1, Code: "STD", Rate: decimal.NewFromInt(20)},
		{TaxID: 2, Code: "GB", Rate: decimal.NewFromInt(17), CountryCode: "GB"},
		{TaxID: 3, Code: "CAM", Rate: decimal.NewFromInt(15), CountryCode: "GB", StateCode: "GB-CAM"},
		{TaxID: 4, Code: "BOOK", Rate: decimal.NewFromInt(5), ProductCode: "BOOK-1", Excluded: true},
	}}
	p := tax.NewDefaultProvider(rules, zerolog.Nop())
	ctx := context.Background()

	got, err := p.DetermineTax(ctx, "SHOP10", "EUR", "GB", "GB-CAM", "A-001")
	require.NoError(t, err)
	require.Equal(t, "CAM", got.Code)

	got, err = p.DetermineTax(ctx, "SHOP10", "EUR", "GB", "GB-OXF", "A-001")
	require.NoError(t, err)
	require.Equal(t, "GB", got.Code)

	got, err = p.DetermineTax(ctx, "SHOP10", "EUR", "FR", "", "A-001")
	require.NoError(t, err)
	require.Equal(t, "STD", got.Code)

	got, err = p.DetermineTax(ctx, "SHOP10", "EUR", "GB", "GB-CAM", "BOOK-1")
	require.NoError(t, err)
	require.Equal(t, "BOOK", got.Code)
	require.True(t, got.Excluded)
}

func TestDefaultProviderNoMatchIsNone(t *testing.T) {
	p := tax.NewDefaultProvider(stubRules{}, zerolog.Nop())
	got, err := p.DetermineTax(context.Background(), "SHOP10", "EUR", "GB", "", "A-001")
	require.NoError(t, err)
	require.Equal(t, tax.None, got)

	p = tax.NewDefaultProvider(stubRules{err: errors.New("db down")}, zerolog.Nop())
	_, err = p.DetermineTax(context.Background(), "SHOP10", "EUR", "GB", "", "A-001")
	require.Error(t, err)
}
