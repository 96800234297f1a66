package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order id does not resolve to an order.
var ErrNotFound = errors.New("order not found")

// Status tracks an order through fulfilment.
type Status string

const (
	StatusProcessing     Status = "Processing"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

// Order is a placed customer order with its full pricing breakdown.
type Order struct {
	ID            string
	ShopperID     string
	Items         []Item
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	CouponCode    string
	PaymentMethod string
	Status        Status
	TrackingID    string
	CreatedAt     time.Time
}

// Item is a single order line, priced at order time.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
