package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/malove/promo-service/internal/domain/product"
	"github.com/malove/promo-service/internal/domain/promo"
	"github.com/malove/promo-service/internal/domain/shopper"
)

// Shipping policy: orders under the threshold pay a flat fee, waived by a
// valid free_shipping coupon.
var (
	shippingFee           = decimal.NewFromInt(100)
	freeShippingThreshold = decimal.NewFromInt(1000)
)

// Sentinel errors for order validation.
var ErrEmptyItems = fmt.Errorf("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// CouponRejectedError carries the engine's rejection when an order names a
// coupon that does not apply. The result's reason is safe to show verbatim.
type CouponRejectedError struct {
	Code   string
	Result promo.Result
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Result.Reason)
}

// LineRequest is an order or quote line as requested by the client.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// QuoteRequest asks whether a coupon applies to a prospective cart.
type QuoteRequest struct {
	CouponCode    string
	Items         []LineRequest
	ShopperID     string
	PaymentMethod promo.PaymentMethod
}

// Quote is the outcome of a coupon evaluation against a priced cart.
type Quote struct {
	Coupon       *promo.Coupon
	Result       promo.Result
	Subtotal     decimal.Decimal
	FreeShipping bool
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items         []LineRequest
	CouponCode    string
	ShopperID     string
	PaymentMethod string
}

// Service encapsulates checkout pricing and order placement.
type Service struct {
	products product.Repository
	coupons  promo.Repository
	shoppers shopper.Repository
	orders   Repository
	engine   *promo.Engine
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	coupons promo.Repository,
	shoppers shopper.Repository,
	orders Repository,
	engine *promo.Engine,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		shoppers: shoppers,
		orders:   orders,
		engine:   engine,
	}
}

// QuoteCoupon prices the requested cart from the catalog and evaluates the
// coupon against it. A code that does not resolve to a coupon record is not
// an error: the engine reports it as an INACTIVE rejection.
func (s *Service) QuoteCoupon(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	items, _, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	subtotal := promo.Subtotal(items)

	c, err := s.coupons.FindByCode(ctx, req.CouponCode)
	if err != nil && !errors.Is(err, promo.ErrCouponNotFound) {
		return nil, errors.Wrap(err, "lookup coupon")
	}

	var sh *promo.Shopper
	if req.ShopperID != "" {
		count, err := s.shoppers.OrderCount(ctx, req.ShopperID)
		if err != nil {
			return nil, errors.Wrap(err, "count shopper orders")
		}
		sh = &promo.Shopper{OrderCount: count}
	}

	res := s.engine.Evaluate(c, subtotal, items, sh, req.PaymentMethod)

	return &Quote{
		Coupon:       c,
		Result:       res,
		Subtotal:     subtotal,
		FreeShipping: res.Valid && c != nil && c.Type == promo.TypeFreeShipping,
	}, nil
}

// PlaceOrder prices the cart, applies the coupon when one is named, adds the
// shipping fee, persists the order, and increments the coupon usage counter.
// The counter increment happens here, after the engine's read-only
// evaluation, so concurrent evaluations stay side-effect free.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	items, lines, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	subtotal := promo.Subtotal(items)

	discount := decimal.Zero
	freeShipping := false
	if req.CouponCode != "" {
		quote, err := s.QuoteCoupon(ctx, QuoteRequest{
			CouponCode:    req.CouponCode,
			Items:         req.Items,
			ShopperID:     req.ShopperID,
			PaymentMethod: promo.ClassifyPaymentMethod(req.PaymentMethod),
		})
		if err != nil {
			return nil, err
		}
		if !quote.Result.Valid {
			return nil, &CouponRejectedError{Code: req.CouponCode, Result: quote.Result}
		}
		discount = quote.Result.Discount
		freeShipping = quote.FreeShipping
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() && subtotal.LessThan(freeShippingThreshold) && !freeShipping {
		shipping = shippingFee
	}

	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:            newOrderID(),
		ShopperID:     req.ShopperID,
		Items:         lines,
		Subtotal:      subtotal,
		Discount:      discount,
		Shipping:      shipping,
		Total:         total,
		CouponCode:    req.CouponCode,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusProcessing,
		TrackingID:    newTrackingID(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if req.CouponCode != "" {
		if err := s.coupons.IncrementUsage(ctx, req.CouponCode); err != nil {
			return nil, errors.Wrap(err, "increment coupon usage")
		}
	}

	return o, nil
}

// Track returns the order with the given id.
func (s *Service) Track(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// priceItems validates quantities and prices each requested line from the
// catalog in a single batch fetch. It returns both the engine's view of the
// cart and the order lines to persist.
func (s *Service) priceItems(ctx context.Context, reqs []LineRequest) ([]promo.LineItem, []Item, error) {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, nil, &InvalidQuantityError{ProductID: r.ProductID}
		}
		ids[i] = r.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get products")
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]promo.LineItem, len(reqs))
	lines := make([]Item, len(reqs))
	for i, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return nil, nil, &ProductNotFoundError{ProductID: r.ProductID}
		}
		items[i] = promo.LineItem{
			ProductID: p.ID,
			Category:  p.Category,
			Price:     p.Price,
			Quantity:  r.Quantity,
		}
		lines[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  r.Quantity,
		}
	}
	return items, lines, nil
}

func newOrderID() string {
	return "ORD-" + uuid.NewString()
}

func newTrackingID() string {
	return "TRK-" + uuid.NewString()[:8]
}
