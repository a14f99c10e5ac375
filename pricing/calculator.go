package pricing

import (
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FinalPrice applies discount to base. The result is never negative and is
// rounded to two decimal places.
func FinalPrice(base decimal.Decimal, discount mo.Option[Discount]) decimal.Decimal {
	d, ok := discount.Get()
	if !ok {
		return base
	}

	var price decimal.Decimal
	switch d.Type {
	case Fixed:
		price = base.Sub(d.Value)
	case Percentage:
		price = base.Sub(base.Mul(d.Value).Div(hundred))
	default:
		return base
	}

	price = price.Round(2)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// Saving is the amount discount takes off base.
func Saving(base decimal.Decimal, discount mo.Option[Discount]) decimal.Decimal {
	return base.Sub(FinalPrice(base, discount))
}
