// Package api exposes the checkout and promotion endpoints over HTTP.
// Request and response bodies are encoded with go-faster/jx.
package api

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/malove/promo-service/internal/domain/order"
	"github.com/malove/promo-service/internal/domain/product"
	"github.com/malove/promo-service/internal/domain/promo"
)

// maxBodyBytes bounds request bodies; carts are small.
const maxBodyBytes = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the API routes, delegating business logic to the injected
// domain repositories and services.
type Handler struct {
	products     product.Repository
	coupons      promo.Repository
	orders       *order.Service
	security     *APIKeyVerifier
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	coupons promo.Repository,
	orders *order.Service,
	security *APIKeyVerifier,
) *Handler {
	return &Handler{
		products:     products,
		coupons:      coupons,
		orders:       orders,
		security:     security,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/coupons", h.listCoupons)
	mux.HandleFunc("POST /api/promo/validate", h.validateCoupon)
	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.trackOrder)
	return mux
}

// readBody drains the request body with a size cap.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// writeJSON renders a single JSON value built by fn.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

// zapServerError logs an unexpected failure and answers with a generic 500.
func zapServerError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

// writeError renders the uniform {code, message} error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}
