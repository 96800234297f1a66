package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malove/promo-service/internal/domain/shopper"
)

const countShopperOrdersSQL = `SELECT COUNT(*) FROM orders
	WHERE shopper_id = $1 AND status <> 'Cancelled'`

var _ shopper.Repository = (*ShopperRepository)(nil)

// ShopperRepository answers shopper profile queries from the orders table.
// Cancelled orders do not count: a shopper whose only order was cancelled is
// still a new user for eligibility purposes.
type ShopperRepository struct {
	pool *pgxpool.Pool
}

// NewShopperRepository returns a ShopperRepository that uses the given pool.
func NewShopperRepository(pool *pgxpool.Pool) *ShopperRepository {
	return &ShopperRepository{pool: pool}
}

// OrderCount returns how many completed orders the shopper has.
func (r *ShopperRepository) OrderCount(ctx context.Context, shopperID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countShopperOrdersSQL, shopperID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting orders for shopper %q: %w", shopperID, err)
	}
	return count, nil
}
