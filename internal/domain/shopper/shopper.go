// Package shopper exposes the minimal profile data promotional rules consult.
package shopper

import "context"

// Repository answers the one question coupon eligibility asks about a
// shopper: how many completed orders they have.
type Repository interface {
	OrderCount(ctx context.Context, shopperID string) (int, error)
}
