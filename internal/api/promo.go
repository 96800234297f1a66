package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/malove/promo-service/internal/domain/order"
	"github.com/malove/promo-service/internal/domain/promo"
)

// validateRequest is the body of POST /api/promo/validate.
type validateRequest struct {
	Code          string
	Items         []order.LineRequest
	ShopperID     string
	PaymentMethod string
}

// validateCoupon evaluates a coupon code against the submitted cart and
// reports the outcome. Rejections are data, not HTTP errors: the response is
// 200 with valid=false and a reason the UI can show verbatim.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "cannot read body")
		return
	}

	req, err := decodeValidateRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "coupon code required")
		return
	}

	quote, err := h.orders.QuoteCoupon(r.Context(), order.QuoteRequest{
		CouponCode:    req.Code,
		Items:         req.Items,
		ShopperID:     req.ShopperID,
		PaymentMethod: promo.ClassifyPaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeQuote(e, quote)
	})
}

// listCoupons returns the currently usable offers.
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListActive(r.Context())
	if err != nil {
		zapServerError(w, r, errors.Wrap(err, "list coupons"))
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range coupons {
			encodeCouponSummary(e, &coupons[i])
		}
		e.ArrEnd()
	})
}

// writeQuoteError maps order service errors from a quote to HTTP responses.
func (h *Handler) writeQuoteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		writeError(w, r, http.StatusBadRequest, "items required")
		return
	}

	var iq *order.InvalidQuantityError
	if errors.As(err, &iq) {
		writeError(w, r, http.StatusUnprocessableEntity, iq.Error())
		return
	}

	var pnf *order.ProductNotFoundError
	if errors.As(err, &pnf) {
		writeError(w, r, http.StatusUnprocessableEntity, pnf.Error())
		return
	}

	zapServerError(w, r, err)
}

func encodeQuote(e *jx.Encoder, q *order.Quote) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("valid", func(e *jx.Encoder) { e.Bool(q.Result.Valid) })
		e.Field("discount", func(e *jx.Encoder) { e.Int64(q.Result.Discount.IntPart()) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Float64(q.Subtotal.InexactFloat64()) })
		e.Field("free_shipping", func(e *jx.Encoder) { e.Bool(q.FreeShipping) })
		if !q.Result.Valid {
			e.Field("reason", func(e *jx.Encoder) { e.Str(string(q.Result.Reason)) })
			e.Field("message", func(e *jx.Encoder) { e.Str(rejectionMessage(q.Result, q.Coupon)) })
			if q.Result.Reason == promo.ReasonBelowMinimum {
				e.Field("shortfall", func(e *jx.Encoder) { e.Float64(q.Result.Shortfall.InexactFloat64()) })
			}
		}
	})
}

func encodeCouponSummary(e *jx.Encoder, c *promo.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(c.Type)) })
		e.Field("min_cart_value", func(e *jx.Encoder) { e.Float64(c.MinCartValue.InexactFloat64()) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
	})
}

// rejectionMessage renders the shopper-facing text for a rejection. The
// wording matches the storefront's historical copy.
func rejectionMessage(res promo.Result, c *promo.Coupon) string {
	switch res.Reason {
	case promo.ReasonInactive:
		return "This coupon is invalid or inactive."
	case promo.ReasonNotStarted:
		return "This offer has not started yet."
	case promo.ReasonExpired:
		return "This coupon has expired."
	case promo.ReasonLimitReached:
		return "This coupon has reached its usage limit."
	case promo.ReasonBelowMinimum:
		return fmt.Sprintf("Add items worth ₹%s more to apply this offer.", res.Shortfall)
	case promo.ReasonNotNewUser:
		return "This offer is valid for new users only."
	case promo.ReasonPaymentMethodMismatch:
		if c != nil && c.Payment == promo.PaymentCODOnly {
			return "This offer is only valid for Cash on Delivery."
		}
		return "This offer is only valid for Prepaid orders."
	case promo.ReasonScopeMismatch:
		return "This coupon is not applicable to the items in your cart."
	default:
		return "Coupon cannot be applied."
	}
}

func decodeValidateRequest(data []byte) (validateRequest, error) {
	var req validateRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Str()
			req.Code = v
			return err
		case "items":
			items, err := decodeLineRequests(d)
			req.Items = items
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

func decodeLineRequests(d *jx.Decoder) ([]order.LineRequest, error) {
	var items []order.LineRequest
	err := d.Arr(func(d *jx.Decoder) error {
		var li order.LineRequest
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product_id":
				v, err := d.Str()
				li.ProductID = v
				return err
			case "quantity":
				v, err := d.Int()
				li.Quantity = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items = append(items, li)
		return nil
	})
	return items, err
}
