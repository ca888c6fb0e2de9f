package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/tax"
)

// lineSums aggregates the monetary components of a set of lines.
type lineSums struct {
	list       decimal.Decimal
	sale       decimal.Decimal
	nonSale    decimal.Decimal
	price      decimal.Decimal
	tax        decimal.Decimal
	amount     decimal.Decimal
	listAmount decimal.Decimal
	promo      bool
	codes      *string
}

// priced reports whether a line takes part in totals. Lines without a
// price or a positive quantity are skipped.
func priced(line cart.CartItem) bool {
	return line.Price.Valid && line.Qty.IsPositive()
}

// sumLines computes totals for lines using the tax breakdown already
// stored on them. Sums are rounded once after aggregation.
func sumLines(lines []cart.CartItem) lineSums {
	s := lineSums{
		list:       decimal.Zero,
		sale:       decimal.Zero,
		nonSale:    decimal.Zero,
		price:      decimal.Zero,
		tax:        decimal.Zero,
		amount:     decimal.Zero,
		listAmount: decimal.Zero,
	}
	for _, line := range lines {
		if !priced(line) {
			continue
		}
		qty := line.Qty
		list := money.OrZero(line.ListPrice)
		sale := list
		if line.SalePrice.Valid {
			sale = line.SalePrice.Decimal
		}
		listLine := list.Mul(qty)
		priceLine := line.Price.Decimal.Mul(qty)
		taxLine := line.GrossPrice.Sub(line.NetPrice).Mul(qty)

		s.list = s.list.Add(listLine)
		s.sale = s.sale.Add(sale.Mul(qty))
		if !line.IsOnSale() {
			s.nonSale = s.nonSale.Add(listLine)
		}
		s.price = s.price.Add(priceLine)
		s.tax = s.tax.Add(taxLine)
		if line.TaxExclusiveOfPrice {
			s.amount = s.amount.Add(priceLine).Add(taxLine)
		} else {
			s.amount = s.amount.Add(priceLine)
		}
		s.listAmount = s.listAmount.Add(tax.GrossUp(listLine, line.NetPrice, line.GrossPrice, line.TaxExclusiveOfPrice))
		if line.PromoApplied {
			s.promo = true
			s.codes = joinCodes(s.codes, line.AppliedPromo)
		}
	}
	s.list = money.Round(s.list)
	s.sale = money.Round(s.sale)
	s.nonSale = money.Round(s.nonSale)
	s.price = money.Round(s.price)
	s.tax = money.Round(s.tax)
	s.amount = money.Round(s.amount)
	s.listAmount = money.Round(s.listAmount)
	return s
}

// itemTotal builds a Total for item lines with no delivery charge.
func itemTotal(s lineSums) Total {
	t := ZeroTotal
	t.ListSubTotal = s.list
	t.SaleSubTotal = s.sale
	t.NonSaleSubTotal = s.nonSale
	t.PriceSubTotal = s.price
	t.SubTotal = s.price
	t.SubTotalTax = s.tax
	t.SubTotalAmount = s.amount
	t.ListTotalAmount = s.listAmount
	return t.refresh()
}

// withDelivery adds delivery figures to an item Total.
func withDelivery(t Total, d lineSums) Total {
	t.DeliveryListCost = d.list
	t.DeliveryCost = d.price
	t.DeliveryTax = d.tax
	t.DeliveryCostAmount = d.amount
	t.DeliveryPromoApplied = d.promo
	t.AppliedDeliveryPromo = d.codes
	t.ListTotalAmount = money.Sum(t.ListTotalAmount, d.listAmount)
	return t.refresh()
}
