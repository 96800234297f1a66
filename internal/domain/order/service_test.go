package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malove/promo-service/internal/domain/product"
	"github.com/malove/promo-service/internal/domain/promo"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]product.Product
	err  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, m.err
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListByCategory(_ context.Context, category string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, m.err
}

type mockCouponRepo struct {
	coupon       *promo.Coupon
	findErr      error
	incremented  []string
	incrementErr error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*promo.Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.coupon == nil || m.coupon.Code != code {
		return nil, promo.ErrCouponNotFound
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) ListActive(_ context.Context) ([]promo.Coupon, error) {
	if m.coupon == nil {
		return nil, nil
	}
	return []promo.Coupon{*m.coupon}, nil
}

func (m *mockCouponRepo) IncrementUsage(_ context.Context, code string) error {
	m.incremented = append(m.incremented, code)
	return m.incrementErr
}

type mockShopperRepo struct {
	counts map[string]int
	err    error
}

func (m *mockShopperRepo) OrderCount(_ context.Context, shopperID string) (int, error) {
	return m.counts[shopperID], m.err
}

type mockOrderRepo struct {
	created *Order
	byID    map[string]*Order
	err     error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.created = o
	return m.err
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testCatalog() *mockProductRepo {
	return &mockProductRepo{byID: map[string]product.Product{
		"1": {ID: "1", Name: "Bhringraj Elixir", Price: d("899"), Category: "Hair"},
		"2": {ID: "2", Name: "Tea Tree Purifier", Price: d("649"), Category: "Hair"},
		"5": {ID: "5", Name: "Kumkumadi Radiance", Price: d("1499"), Category: "Skin"},
	}}
}

func liveCoupon(code string, typ promo.Type, value string) *promo.Coupon {
	return &promo.Coupon{
		Code:       code,
		Type:       typ,
		Value:      d(value),
		ValidFrom:  time.Now().AddDate(-1, 0, 0),
		ValidUntil: time.Now().AddDate(1, 0, 0),
		IsActive:   true,
	}
}

func newTestService(products *mockProductRepo, coupons *mockCouponRepo, orders *mockOrderRepo) *Service {
	return NewService(products, coupons, &mockShopperRepo{}, orders, promo.NewEngine())
}

// --- Tests ---

func TestQuoteCoupon(t *testing.T) {
	coupons := &mockCouponRepo{coupon: liveCoupon("SAVE20", promo.TypePercentage, "20")}
	svc := newTestService(testCatalog(), coupons, &mockOrderRepo{})

	quote, err := svc.QuoteCoupon(context.Background(), QuoteRequest{
		CouponCode: "SAVE20",
		Items: []LineRequest{
			{ProductID: "1", Quantity: 1},
			{ProductID: "2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.True(t, quote.Result.Valid)
	assert.True(t, quote.Subtotal.Equal(d("1548")), "got %s", quote.Subtotal)
	// 20% of 1548 = 309.6, floored.
	assert.True(t, quote.Result.Discount.Equal(d("309")), "got %s", quote.Result.Discount)
	assert.False(t, quote.FreeShipping)
	assert.Empty(t, coupons.incremented, "quoting must not burn a use")
}

func TestQuoteCoupon_UnknownCode(t *testing.T) {
	svc := newTestService(testCatalog(), &mockCouponRepo{}, &mockOrderRepo{})

	quote, err := svc.QuoteCoupon(context.Background(), QuoteRequest{
		CouponCode: "BOGUS",
		Items:      []LineRequest{{ProductID: "1", Quantity: 1}},
	})
	require.NoError(t, err, "an unknown code is a rejection, not an error")

	assert.False(t, quote.Result.Valid)
	assert.Equal(t, promo.ReasonInactive, quote.Result.Reason)
}

func TestQuoteCoupon_NewUserGate(t *testing.T) {
	c := liveCoupon("WELCOME500", promo.TypeFlat, "500")
	c.Eligibility = promo.EligibilityNewUser

	shoppers := &mockShopperRepo{counts: map[string]int{"usr_1": 2, "usr_2": 0}}
	svc := NewService(testCatalog(), &mockCouponRepo{coupon: c}, shoppers, &mockOrderRepo{}, promo.NewEngine())

	req := QuoteRequest{
		CouponCode: "WELCOME500",
		Items:      []LineRequest{{ProductID: "5", Quantity: 2}},
	}

	req.ShopperID = "usr_1"
	quote, err := svc.QuoteCoupon(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, quote.Result.Valid)
	assert.Equal(t, promo.ReasonNotNewUser, quote.Result.Reason)

	req.ShopperID = "usr_2"
	quote, err = svc.QuoteCoupon(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, quote.Result.Valid)
}

func TestQuoteCoupon_EmptyItems(t *testing.T) {
	svc := newTestService(testCatalog(), &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.QuoteCoupon(context.Background(), QuoteRequest{CouponCode: "X"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder(t *testing.T) {
	coupons := &mockCouponRepo{coupon: liveCoupon("SAVE20", promo.TypePercentage, "20")}
	orders := &mockOrderRepo{}
	svc := newTestService(testCatalog(), coupons, orders)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []LineRequest{
			{ProductID: "1", Quantity: 1},
			{ProductID: "2", Quantity: 1},
		},
		CouponCode:    "SAVE20",
		PaymentMethod: "UPI",
	})
	require.NoError(t, err)
	require.NotNil(t, orders.created)

	assert.True(t, o.Subtotal.Equal(d("1548")))
	assert.True(t, o.Discount.Equal(d("309")))
	// Subtotal over the threshold ships free.
	assert.True(t, o.Shipping.IsZero())
	assert.True(t, o.Total.Equal(d("1239")), "got %s", o.Total)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.NotEmpty(t, o.TrackingID)
	assert.Equal(t, []string{"SAVE20"}, coupons.incremented)
}

func TestPlaceOrder_ShippingFee(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(testCatalog(), &mockCouponRepo{}, orders)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []LineRequest{{ProductID: "2", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(d("649")))
	assert.True(t, o.Shipping.Equal(d("100")), "subtotal under threshold pays the fee")
	assert.True(t, o.Total.Equal(d("749")), "got %s", o.Total)
}

func TestPlaceOrder_FreeShippingCoupon(t *testing.T) {
	c := liveCoupon("FREESHIP", promo.TypeFreeShipping, "0")
	c.MinCartValue = d("499")
	coupons := &mockCouponRepo{coupon: c}
	svc := newTestService(testCatalog(), coupons, &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []LineRequest{{ProductID: "2", Quantity: 1}},
		CouponCode: "FREESHIP",
	})
	require.NoError(t, err)

	assert.True(t, o.Discount.IsZero(), "free shipping yields no discount amount")
	assert.True(t, o.Shipping.IsZero(), "fee waived below the threshold")
	assert.True(t, o.Total.Equal(d("649")), "got %s", o.Total)
	assert.Equal(t, []string{"FREESHIP"}, coupons.incremented)
}

func TestPlaceOrder_CouponRejected(t *testing.T) {
	c := liveCoupon("WELCOME500", promo.TypeFlat, "500")
	c.MinCartValue = d("1500")
	coupons := &mockCouponRepo{coupon: c}
	orders := &mockOrderRepo{}
	svc := newTestService(testCatalog(), coupons, orders)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []LineRequest{{ProductID: "2", Quantity: 1}},
		CouponCode: "WELCOME500",
	})

	var rejected *CouponRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, promo.ReasonBelowMinimum, rejected.Result.Reason)
	assert.True(t, rejected.Result.Shortfall.Equal(d("851")), "got %s", rejected.Result.Shortfall)
	assert.Nil(t, orders.created, "rejected coupons must not place orders")
	assert.Empty(t, coupons.incremented)
}

func TestPlaceOrder_Validation(t *testing.T) {
	svc := newTestService(testCatalog(), &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)

	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []LineRequest{{ProductID: "1", Quantity: 0}},
	})
	var iq *InvalidQuantityError
	require.ErrorAs(t, err, &iq)
	assert.Equal(t, "1", iq.ProductID)

	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []LineRequest{{ProductID: "404", Quantity: 1}},
	})
	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "404", pnf.ProductID)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	orders := &mockOrderRepo{err: errors.New("db down")}
	svc := newTestService(testCatalog(), &mockCouponRepo{}, orders)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []LineRequest{{ProductID: "1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestTrack(t *testing.T) {
	known := &Order{ID: "ORD-1", Status: StatusOutForDelivery, TrackingID: "TRK-99"}
	orders := &mockOrderRepo{byID: map[string]*Order{"ORD-1": known}}
	svc := newTestService(testCatalog(), &mockCouponRepo{}, orders)

	o, err := svc.Track(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, o.Status)

	_, err = svc.Track(context.Background(), "ORD-404")
	require.ErrorIs(t, err, ErrNotFound)
}
