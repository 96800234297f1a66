package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason identifies why a coupon was rejected. Every reason is a normal,
// recoverable outcome safe to surface to the shopper; none is a Go error.
type Reason string

const (
	// ReasonInactive: the coupon record is missing or switched off.
	ReasonInactive Reason = "INACTIVE"
	// ReasonNotStarted: the validity window has not opened yet.
	ReasonNotStarted Reason = "NOT_STARTED"
	// ReasonExpired: the validity window has closed.
	ReasonExpired Reason = "EXPIRED"
	// ReasonLimitReached: the usage limit is exhausted.
	ReasonLimitReached Reason = "LIMIT_REACHED"
	// ReasonBelowMinimum: the cart subtotal is under the coupon's minimum.
	ReasonBelowMinimum Reason = "BELOW_MINIMUM"
	// ReasonNotNewUser: the coupon is for first orders only.
	ReasonNotNewUser Reason = "NOT_NEW_USER"
	// ReasonPaymentMethodMismatch: the selected payment mode is not allowed.
	ReasonPaymentMethodMismatch Reason = "PAYMENT_METHOD_MISMATCH"
	// ReasonScopeMismatch: no cart item falls under the coupon's
	// category/product restrictions.
	ReasonScopeMismatch Reason = "SCOPE_MISMATCH"
)

// Result is the outcome of a single evaluation. A coupon is never partially
// applied: either Valid is true and Discount holds the full figure, or Valid
// is false, Reason is set, and Discount is zero.
type Result struct {
	Valid  bool
	Reason Reason
	// Shortfall is set only for ReasonBelowMinimum: the exact amount the
	// shopper must add to qualify.
	Shortfall decimal.Decimal
	// Discount is floored to a whole currency unit and never exceeds the
	// cart subtotal.
	Discount decimal.Decimal
}

// Engine evaluates coupons against a cart snapshot. It holds no state between
// calls and is safe for concurrent use; the clock is injectable for tests.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Evaluate decides whether the coupon applies to the given cart and shopper,
// and if so, the exact discount it yields. The gates run in a fixed order and
// the first failure wins: active flag, validity window, usage limit, minimum
// cart value, shopper eligibility, payment restriction, then item scope.
// Subtotal is the caller-computed sum over all lines; the engine does not
// re-validate prices or quantities.
func (e *Engine) Evaluate(c *Coupon, subtotal decimal.Decimal, items []LineItem, shopper *Shopper, method PaymentMethod) Result {
	if c == nil || !c.IsActive {
		return reject(ReasonInactive)
	}

	now := e.now()
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return reject(ReasonNotStarted)
	}
	if !c.ValidUntil.IsZero() && now.After(endOfDay(c.ValidUntil)) {
		return reject(ReasonExpired)
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return reject(ReasonLimitReached)
	}

	if subtotal.LessThan(c.MinCartValue) {
		r := reject(ReasonBelowMinimum)
		r.Shortfall = c.MinCartValue.Sub(subtotal)
		return r
	}

	// Anonymous shoppers pass: a missing profile never blocks a new-user offer.
	if c.Eligibility == EligibilityNewUser && shopper.IsReturning() {
		return reject(ReasonNotNewUser)
	}

	// The payment gate only runs once a method has been selected.
	if method != PaymentUnknown {
		switch c.Payment {
		case PaymentPrepaidOnly:
			if method == PaymentCOD {
				return reject(ReasonPaymentMethodMismatch)
			}
		case PaymentCODOnly:
			if method != PaymentCOD {
				return reject(ReasonPaymentMethodMismatch)
			}
		}
	}

	eligible, ok := resolveScope(c, subtotal, items)
	if !ok {
		return reject(ReasonScopeMismatch)
	}

	return Result{
		Valid:    true,
		Discount: calculate(c, eligible, subtotal),
	}
}

func reject(reason Reason) Result {
	return Result{Reason: reason, Discount: decimal.Zero}
}

// endOfDay pushes a window end to 23:59:59.999 of its calendar day so the
// coupon stays usable through its last advertised day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
