package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// Total is the computed breakdown of a cart, order or delivery. Values are
// rounded to two decimal places. Totals are values: every operation returns
// a new Total.
type Total struct {
	ListSubTotal         decimal.Decimal `json:"listSubTotal"`
	SaleSubTotal         decimal.Decimal `json:"saleSubTotal"`
	NonSaleSubTotal      decimal.Decimal `json:"nonSaleSubTotal"`
	PriceSubTotal        decimal.Decimal `json:"priceSubTotal"`
	OrderPromoApplied    bool            `json:"orderPromoApplied"`
	AppliedOrderPromo    *string         `json:"appliedOrderPromo,omitempty"`
	SubTotal             decimal.Decimal `json:"subTotal"`
	SubTotalTax          decimal.Decimal `json:"subTotalTax"`
	SubTotalAmount       decimal.Decimal `json:"subTotalAmount"`
	DeliveryListCost     decimal.Decimal `json:"deliveryListCost"`
	DeliveryCost         decimal.Decimal `json:"deliveryCost"`
	DeliveryPromoApplied bool            `json:"deliveryPromoApplied"`
	AppliedDeliveryPromo *string         `json:"appliedDeliveryPromo,omitempty"`
	DeliveryTax          decimal.Decimal `json:"deliveryTax"`
	DeliveryCostAmount   decimal.Decimal `json:"deliveryCostAmount"`
	Total                decimal.Decimal `json:"total"`
	TotalTax             decimal.Decimal `json:"totalTax"`
	ListTotalAmount      decimal.Decimal `json:"listTotalAmount"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
}

// ZeroTotal is the neutral element of Add.
var ZeroTotal = Total{
	ListSubTotal:       money.Zero,
	SaleSubTotal:       money.Zero,
	NonSaleSubTotal:    money.Zero,
	PriceSubTotal:      money.Zero,
	SubTotal:           money.Zero,
	SubTotalTax:        money.Zero,
	SubTotalAmount:     money.Zero,
	DeliveryListCost:   money.Zero,
	DeliveryCost:       money.Zero,
	DeliveryTax:        money.Zero,
	DeliveryCostAmount: money.Zero,
	Total:              money.Zero,
	TotalTax:           money.Zero,
	ListTotalAmount:    money.Zero,
	TotalAmount:        money.Zero,
}

// DeliveryTotal is the Total of a shipping charge alone, as reported by
// delivery cost strategies.
func DeliveryTotal(list, cost decimal.Decimal) Total {
	t := ZeroTotal
	t.DeliveryListCost = money.Round(list)
	t.DeliveryCost = money.Round(cost)
	t.DeliveryCostAmount = t.DeliveryCost
	t.ListTotalAmount = t.DeliveryListCost
	return t.refresh()
}

// Add sums every amount of t and o. Promotion flags are or-ed and promotion
// codes are joined without duplicates.
func (t Total) Add(o Total) Total {
	return Total{
		ListSubTotal:         money.Sum(t.ListSubTotal, o.ListSubTotal),
		SaleSubTotal:         money.Sum(t.SaleSubTotal, o.SaleSubTotal),
		NonSaleSubTotal:      money.Sum(t.NonSaleSubTotal, o.NonSaleSubTotal),
		PriceSubTotal:        money.Sum(t.PriceSubTotal, o.PriceSubTotal),
		OrderPromoApplied:    t.OrderPromoApplied || o.OrderPromoApplied,
		AppliedOrderPromo:    joinCodes(t.AppliedOrderPromo, o.AppliedOrderPromo),
		SubTotal:             money.Sum(t.SubTotal, o.SubTotal),
		SubTotalTax:          money.Sum(t.SubTotalTax, o.SubTotalTax),
		SubTotalAmount:       money.Sum(t.SubTotalAmount, o.SubTotalAmount),
		DeliveryListCost:     money.Sum(t.DeliveryListCost, o.DeliveryListCost),
		DeliveryCost:         money.Sum(t.DeliveryCost, o.DeliveryCost),
		DeliveryPromoApplied: t.DeliveryPromoApplied || o.DeliveryPromoApplied,
		AppliedDeliveryPromo: joinCodes(t.AppliedDeliveryPromo, o.AppliedDeliveryPromo),
		DeliveryTax:          money.Sum(t.DeliveryTax, o.DeliveryTax),
		DeliveryCostAmount:   money.Sum(t.DeliveryCostAmount, o.DeliveryCostAmount),
		Total:                money.Sum(t.Total, o.Total),
		TotalTax:             money.Sum(t.TotalTax, o.TotalTax),
		ListTotalAmount:      money.Sum(t.ListTotalAmount, o.ListTotalAmount),
		TotalAmount:          money.Sum(t.TotalAmount, o.TotalAmount),
	}
}

// WithOrderPromotion returns t with discount taken off the item sub total.
// Tax and amount shrink in proportion; the discount never takes the sub
// total below zero.
func (t Total) WithOrderPromotion(discount decimal.Decimal, code string) Total {
	if !discount.IsPositive() || !t.SubTotal.IsPositive() {
		return t
	}
	reduced := t.SubTotal.Sub(discount)
	if reduced.IsNegative() {
		reduced = decimal.Zero
	}
	ratio := reduced.Div(t.SubTotal)
	t.SubTotal = money.Round(reduced)
	t.SubTotalTax = money.Round(t.SubTotalTax.Mul(ratio))
	t.SubTotalAmount = money.Round(t.SubTotalAmount.Mul(ratio))
	t.OrderPromoApplied = true
	t.AppliedOrderPromo = joinCodes(t.AppliedOrderPromo, optional(code))
	return t.refresh()
}

// refresh recomputes the grand totals from the sub total and delivery parts.
func (t Total) refresh() Total {
	t.Total = money.Sum(t.SubTotal, t.DeliveryCost)
	t.TotalTax = money.Sum(t.SubTotalTax, t.DeliveryTax)
	t.TotalAmount = money.Sum(t.SubTotalAmount, t.DeliveryCostAmount)
	return t
}

// joinCodes merges two comma separated code lists keeping first-seen order.
func joinCodes(a, b *string) *string {
	var codes []string
	seen := map[string]struct{}{}
	for _, list := range []*string{a, b} {
		if list == nil {
			continue
		}
		for _, code := range strings.Split(*list, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return optional(strings.Join(codes, ","))
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
