package promo

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// calculate turns an eligible amount into the final discount figure for the
// coupon's type. Whatever the type, the result is clamped to the cart
// subtotal and floored to a whole currency unit.
func calculate(c *Coupon, eligible, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal

	switch c.Type {
	case TypeFlat:
		// Flat discounts are order-level: they apply in full even when the
		// coupon is scoped to a subset of items. Scaling them by the
		// eligible amount would change long-standing observable totals.
		amount = c.Value
	case TypePercentage:
		amount = eligible.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.IsPositive() && amount.GreaterThan(c.MaxDiscount) {
			amount = c.MaxDiscount
		}
	case TypeFreeShipping:
		// The waiver is signalled by the coupon type, not the amount.
		amount = decimal.Zero
	default:
		amount = decimal.Zero
	}

	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Floor()
}
