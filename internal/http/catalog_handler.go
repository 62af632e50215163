package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.catalog.ListByProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, variants)
}

func (h *Handler) ResolveVariant(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.catalog.Resolve(r.Context(), chi.URLParam(r, "productId"), q.Get("colorId"), q.Get("sizeId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type priceResponse struct {
	VariantID string  `json:"variantId"`
	Price     float64 `json:"price"`
}

func (h *Handler) PriceOf(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantId")
	price, err := h.catalog.PriceOf(r.Context(), variantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{VariantID: variantID, Price: price})
}
