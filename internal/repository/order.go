package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/malove/promo-service/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, shopper_id, items, subtotal, discount, shipping, total,
		 coupon_code, payment_method, status, tracking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	getOrderByIDSQL = `SELECT id, shopper_id, items, subtotal, discount, shipping, total,
		coupon_code, payment_method, status, tracking_id, created_at
		FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order lines are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.ShopperID, itemsJSON, o.Subtotal, o.Discount, o.Shipping, o.Total,
		o.CouponCode, o.PaymentMethod, string(o.Status), o.TrackingID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByID returns the order with the given identifier.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		subtotal  decimal.Decimal
		discount  decimal.Decimal
		shipping  decimal.Decimal
		total     decimal.Decimal
		status    string
		createdAt time.Time
	)
	err := row.Scan(
		&o.ID, &o.ShopperID, &itemsJSON, &subtotal, &discount, &shipping, &total,
		&o.CouponCode, &o.PaymentMethod, &status, &o.TrackingID, &createdAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.Subtotal = subtotal
	o.Discount = discount
	o.Shipping = shipping
	o.Total = total
	o.Status = order.Status(status)
	o.CreatedAt = createdAt
	return o, nil
}
