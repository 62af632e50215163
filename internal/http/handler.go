package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/http/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

type CartService interface {
	GetCart(ctx context.Context, id identity.Identity) (cart.Cart, error)
	AddItem(ctx context.Context, id identity.Identity, variantID string, quantity int) (cart.Cart, error)
	UpdateItem(ctx context.Context, id identity.Identity, lineID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, id identity.Identity, lineID string) (cart.Cart, error)
	ClearCart(ctx context.Context, id identity.Identity) (cart.Cart, error)
}

type IdentityResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (identity.Identity, error)
	CurrentUser(r *http.Request) (identity.UserIdentity, bool)
}

type MergeCoordinator interface {
	MergeOnAuth(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string)
}

type Handler struct {
	identities IdentityResolver
	carts      CartService
	catalog    catalog.Repository
	merger     MergeCoordinator
	log        *logger.Logger
}

func NewHandler(identities IdentityResolver, carts CartService, variants catalog.Repository, merger MergeCoordinator, log *logger.Logger) *Handler {
	return &Handler{identities: identities, carts: carts, catalog: variants, merger: merger, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrLineNotFound), errors.Is(err, catalog.ErrVariantNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, identity.ErrIdentityUnavailable),
		errors.Is(err, cart.ErrStorageUnavailable),
		errors.Is(err, catalog.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
			"correlationId", middleware.GetCorrelationID(r.Context()))
		msg = http.StatusText(status)
	}
	h.writeMessage(w, r, status, msg)
}

func (h *Handler) writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, middleware.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}
