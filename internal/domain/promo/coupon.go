package promo

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount mechanics.
type Type string

const (
	// TypeFlat subtracts a fixed amount from the order total.
	TypeFlat Type = "flat"
	// TypePercentage subtracts a percentage of the eligible amount,
	// optionally capped by the coupon's MaxDiscount.
	TypePercentage Type = "percentage"
	// TypeFreeShipping waives the shipping fee. The discount amount is
	// always zero; callers read the waiver from the coupon type itself.
	TypeFreeShipping Type = "free_shipping"
)

// PaymentRestriction narrows a coupon to a payment mode.
type PaymentRestriction string

const (
	// PaymentAll places no restriction on the payment mode.
	PaymentAll PaymentRestriction = "all"
	// PaymentPrepaidOnly requires an online (non cash-on-delivery) payment.
	PaymentPrepaidOnly PaymentRestriction = "prepaid"
	// PaymentCODOnly requires cash on delivery.
	PaymentCODOnly PaymentRestriction = "cod"
)

// Eligibility narrows a coupon to a shopper segment.
type Eligibility string

const (
	// EligibilityAll places no restriction on the shopper.
	EligibilityAll Eligibility = "all"
	// EligibilityNewUser restricts the coupon to shoppers without a
	// completed order.
	EligibilityNewUser Eligibility = "new_user"
)

// PaymentMethod is the checkout-selected payment mode, already classified.
// The zero value means the shopper has not picked a method yet, in which
// case the payment gate is skipped entirely.
type PaymentMethod int

const (
	// PaymentUnknown means no payment method has been selected.
	PaymentUnknown PaymentMethod = iota
	// PaymentPrepaid covers every online payment mode (UPI, cards, wallets).
	PaymentPrepaid
	// PaymentCOD is cash on delivery.
	PaymentCOD
)

// ClassifyPaymentMethod maps the free-text method label a checkout UI sends
// into a PaymentMethod. Labels containing "cash" or "cod" (case-insensitive)
// classify as COD; any other non-empty label is treated as prepaid. The
// permissive prepaid default mirrors the historical checkout behaviour and
// keeps unrecognised gateway names from blocking prepaid-only offers.
func ClassifyPaymentMethod(label string) PaymentMethod {
	if label == "" {
		return PaymentUnknown
	}
	l := strings.ToLower(label)
	if strings.Contains(l, "cash") || strings.Contains(l, "cod") {
		return PaymentCOD
	}
	return PaymentPrepaid
}

// Coupon is a promotional code record. The engine only reads coupons; it
// never creates, persists, or mutates them. UsedCount is a snapshot taken by
// the caller, not a live counter.
type Coupon struct {
	Code         string
	Name         string
	Type         Type
	Value        decimal.Decimal
	MinCartValue decimal.Decimal
	// MaxDiscount caps percentage discounts. Zero means no cap.
	MaxDiscount decimal.Decimal
	// ValidFrom / ValidUntil bound the validity window, both inclusive.
	// ValidUntil is treated as end-of-day so a coupon stays usable through
	// its last calendar day. A zero time leaves that side unbounded.
	ValidFrom  time.Time
	ValidUntil time.Time
	// UsageLimit of zero or less means unlimited.
	UsageLimit int
	UsedCount  int
	IsActive   bool
	// Categories / Products are optional allow-lists. Empty means no
	// restriction on that axis.
	Categories  []string
	Products    []string
	Payment     PaymentRestriction
	Eligibility Eligibility
	Description string
}

// LineItem is a cart line as seen by the engine.
type LineItem struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Shopper exposes the single profile fact the engine consults. A nil
// *Shopper is an anonymous visitor and always passes the new-user gate.
type Shopper struct {
	OrderCount int
}

// IsReturning reports whether the shopper has completed at least one order.
func (s *Shopper) IsReturning() bool {
	return s != nil && s.OrderCount > 0
}

// ErrCouponNotFound is the sentinel repositories return when a code does not
// resolve to a coupon record.
var ErrCouponNotFound = errors.New("coupon not found")

// Repository provides read access to the coupon store plus the usage counter
// increment the checkout flow performs after a successful order.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	IncrementUsage(ctx context.Context, code string) error
}
