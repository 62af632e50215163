package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
)

type addItemRequest struct {
	VariantID string       `json:"variantId"`
	Quantity  *json.Number `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *json.Number `json:"quantity"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolve(w, r)
	if !ok {
		return
	}
	c, err := h.carts.GetCart(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	qty := 1
	if req.Quantity != nil {
		n, err := parseQuantity(*req.Quantity)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		qty = n
	}

	id, ok := h.resolve(w, r)
	if !ok {
		return
	}
	c, err := h.carts.AddItem(r.Context(), id, req.VariantID, qty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		h.writeError(w, r, cart.ErrInvalidQuantity)
		return
	}
	// negative values are allowed here: they remove the line
	qty, err := strconv.Atoi(req.Quantity.String())
	if err != nil || qty > cart.MaxLineQuantity {
		h.writeError(w, r, cart.ErrInvalidQuantity)
		return
	}

	id, ok := h.resolve(w, r)
	if !ok {
		return
	}
	c, err := h.carts.UpdateItem(r.Context(), id, chi.URLParam(r, "lineId"), qty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolve(w, r)
	if !ok {
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), id, chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolve(w, r)
	if !ok {
		return
	}
	c, err := h.carts.ClearCart(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// MergeCart is called by the sign-in flow with the fresh session credential.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	user, ok := h.identities.CurrentUser(r)
	if !ok {
		h.writeMessage(w, r, http.StatusUnauthorized, "no authenticated session")
		return
	}
	h.merger.MergeOnAuth(r.Context(), w, r, user.UserID)

	c, err := h.carts.GetCart(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, err := h.identities.Resolve(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return id, true
}

func parseQuantity(n json.Number) (int, error) {
	qty, err := strconv.Atoi(n.String())
	if err != nil || qty <= 0 || qty > cart.MaxLineQuantity {
		return 0, cart.ErrInvalidQuantity
	}
	return qty, nil
}
