package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/malove/promo-service/internal/domain/order"
)

// placeOrderRequest is the body of POST /api/orders.
type placeOrderRequest struct {
	Items         []order.LineRequest
	CouponCode    string
	ShopperID     string
	PaymentMethod string
}

// placeOrder prices and persists an order. The endpoint is API-key protected;
// the key travels in the X-API-Key header.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.security.Verify(r.Context(), r.Header.Get("X-API-Key")); err != nil {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "cannot read body")
		return
	}

	req, err := decodePlaceOrderRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Items:         req.Items,
		CouponCode:    req.CouponCode,
		ShopperID:     req.ShopperID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.writePlaceOrderError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// trackOrder returns the order with the given id.
func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Track(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zapServerError(w, r, errors.Wrap(err, "track order"))
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// writePlaceOrderError maps order placement failures to HTTP responses.
// A rejected coupon is 422 with the engine's reason so the storefront can
// show it and let the shopper fix the cart.
func (h *Handler) writePlaceOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *order.CouponRejectedError
	if errors.As(err, &rejected) {
		writeJSON(w, r, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusUnprocessableEntity) })
				e.Field("message", func(e *jx.Encoder) { e.Str(rejectionMessage(rejected.Result, nil)) })
				e.Field("reason", func(e *jx.Encoder) { e.Str(string(rejected.Result.Reason)) })
			})
		})
		return
	}

	h.writeQuoteError(w, r, err)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("tracking_id", func(e *jx.Encoder) { e.Str(o.TrackingID) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Float64(o.Subtotal.InexactFloat64()) })
		e.Field("discount", func(e *jx.Encoder) { e.Float64(o.Discount.InexactFloat64()) })
		e.Field("shipping", func(e *jx.Encoder) { e.Float64(o.Shipping.InexactFloat64()) })
		e.Field("total", func(e *jx.Encoder) { e.Float64(o.Total.InexactFloat64()) })
		if o.CouponCode != "" {
			e.Field("coupon_code", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		if o.PaymentMethod != "" {
			e.Field("payment_method", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		}
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339)) })
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, item := range o.Items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("product_id", func(e *jx.Encoder) { e.Str(item.ProductID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
					e.Field("price", func(e *jx.Encoder) { e.Float64(item.Price.InexactFloat64()) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
				})
			}
			e.ArrEnd()
		})
	})
}

func decodePlaceOrderRequest(data []byte) (placeOrderRequest, error) {
	var req placeOrderRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			items, err := decodeLineRequests(d)
			req.Items = items
			return err
		case "coupon_code":
			v, err := d.Str()
			req.CouponCode = v
			return err
		case "shopper_id":
			v, err := d.Str()
			req.ShopperID = v
			return err
		case "payment_method":
			v, err := d.Str()
			req.PaymentMethod = v
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}
