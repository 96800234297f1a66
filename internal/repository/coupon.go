package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/malove/promo-service/internal/domain/promo"
)

const (
	couponColumns = `code, name, discount_type, value, min_cart_value, max_discount,
		valid_from, valid_until, usage_limit, used_count, active,
		categories, products, payment_method, user_eligibility, description`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	listActiveCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons
		WHERE active = TRUE
		  AND (valid_from IS NULL OR valid_from <= now())
		  AND (valid_until IS NULL OR valid_until >= now() - interval '1 day')
		ORDER BY code`

	incrementCouponUsageSQL = `UPDATE coupons SET used_count = used_count + 1 WHERE UPPER(code) = UPPER($1)`
)

var _ promo.Repository = (*CouponRepository)(nil)

// CouponRepository implements promo.Repository backed by PostgreSQL. The
// active flag and validity window are deliberately NOT filtered in
// FindByCode: the engine inspects them itself so it can report the precise
// rejection reason.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns promo.ErrCouponNotFound when no record exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*promo.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// ListActive returns the currently usable coupons for the offers listing.
func (r *CouponRepository) ListActive(ctx context.Context) ([]promo.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// IncrementUsage atomically increments the usage counter for the given code.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementCouponUsageSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (promo.Coupon, error) {
	var (
		c           promo.Coupon
		typ         string
		value       decimal.Decimal
		minCart     decimal.Decimal
		maxDiscount decimal.Decimal
		validFrom   *time.Time
		validUntil  *time.Time
		payment     string
		eligibility string
	)
	err := row.Scan(
		&c.Code, &c.Name, &typ, &value, &minCart, &maxDiscount,
		&validFrom, &validUntil, &c.UsageLimit, &c.UsedCount, &c.IsActive,
		&c.Categories, &c.Products, &payment, &eligibility, &c.Description,
	)
	c.Type = promo.Type(typ)
	c.Value = value
	c.MinCartValue = minCart
	c.MaxDiscount = maxDiscount
	if validFrom != nil {
		c.ValidFrom = *validFrom
	}
	if validUntil != nil {
		c.ValidUntil = *validUntil
	}
	c.Payment = promo.PaymentRestriction(payment)
	c.Eligibility = promo.Eligibility(eligibility)
	return c, err
}
