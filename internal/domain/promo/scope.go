package promo

import (
	"slices"

	"github.com/shopspring/decimal"
)

// resolveScope computes the eligible amount a scoped coupon's discount is
// based on. Without restrictions the whole subtotal is eligible. With
// restrictions, a line item counts when it matches the category allow-list or
// the product allow-list; when both lists are present, matching either one is
// enough. The boolean is false when restrictions exist but no item matches.
func resolveScope(c *Coupon, subtotal decimal.Decimal, items []LineItem) (decimal.Decimal, bool) {
	byCategory := len(c.Categories) > 0
	byProduct := len(c.Products) > 0

	if !byCategory && !byProduct {
		return subtotal, true
	}

	eligible := decimal.Zero
	matched := false
	for _, item := range items {
		if byCategory && slices.Contains(c.Categories, item.Category) {
			eligible = eligible.Add(lineTotal(item))
			matched = true
			continue
		}
		if byProduct && slices.Contains(c.Products, item.ProductID) {
			eligible = eligible.Add(lineTotal(item))
			matched = true
		}
	}

	return eligible, matched
}

func lineTotal(item LineItem) decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Subtotal sums price times quantity over all lines. Callers normally compute
// this themselves; the helper keeps checkout and tests consistent.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(lineTotal(item))
	}
	return sum
}
