package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestResolveScope(t *testing.T) {
	items := []LineItem{
		{ProductID: "1", Category: "Hair", Price: d("899"), Quantity: 1},
		{ProductID: "2", Category: "Hair", Price: d("649"), Quantity: 2},
		{ProductID: "5", Category: "Skin", Price: d("1499"), Quantity: 1},
	}
	subtotal := Subtotal(items)

	tests := []struct {
		name         string
		categories   []string
		products     []string
		wantEligible decimal.Decimal
		wantMatch    bool
	}{
		{
			name:         "no restrictions: whole cart eligible",
			wantEligible: subtotal,
			wantMatch:    true,
		},
		{
			name:         "category restriction sums matching lines",
			categories:   []string{"Hair"},
			wantEligible: d("2197"), // 899 + 649*2
			wantMatch:    true,
		},
		{
			name:         "product restriction sums matching lines",
			products:     []string{"5"},
			wantEligible: d("1499"),
			wantMatch:    true,
		},
		{
			name:         "both axes: item matching either counts",
			categories:   []string{"Skin"},
			products:     []string{"1"},
			wantEligible: d("2398"), // 899 + 1499
			wantMatch:    true,
		},
		{
			name:         "item matching both axes counts once",
			categories:   []string{"Hair"},
			products:     []string{"1"},
			wantEligible: d("2197"),
			wantMatch:    true,
		},
		{
			name:       "no item matches",
			categories: []string{"Wax"},
		},
		{
			name:     "restricted with empty cart",
			products: []string{"9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{Categories: tt.categories, Products: tt.products}

			eligible, ok := resolveScope(c, subtotal, items)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.True(t, tt.wantEligible.Equal(eligible),
					"expected eligible %s, got %s", tt.wantEligible, eligible)
			}
		})
	}
}

func TestSubtotal(t *testing.T) {
	assert.True(t, Subtotal(nil).IsZero())

	got := Subtotal([]LineItem{
		{Price: d("9.99"), Quantity: 3},
		{Price: d("100"), Quantity: 1},
	})
	assert.True(t, got.Equal(d("129.97")), "got %s", got)
}
