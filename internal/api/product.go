package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/malove/promo-service/internal/domain/product"
)

// listProducts returns the catalog, optionally filtered by ?category=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []product.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.products.ListByCategory(r.Context(), category)
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		zapServerError(w, r, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

// getProduct returns a single product by ID.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zapServerError(w, r, errors.Wrap(err, "get product"))
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, p)
	})
}

// encodeProduct renders a product, prefixing the image path with the
// configured base URL.
func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("tagline", func(e *jx.Encoder) { e.Str(p.Tagline) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(p.Price.InexactFloat64()) })
		e.Field("mrp", func(e *jx.Encoder) { e.Float64(p.MRP.InexactFloat64()) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageBaseURL + p.Image) })
	})
}
