package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. MRP is the strike-through list price shown next
// to the selling price.
type Product struct {
	ID       string
	Name     string
	Tagline  string
	Price    decimal.Decimal
	MRP      decimal.Decimal
	Category string
	Image    string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
}
