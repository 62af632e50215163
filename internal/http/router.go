package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/http/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

type RouterOptions struct {
	AllowOrigins   []string
	RequestTimeout time.Duration
}

func NewRouter(h *Handler, log *logger.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", middleware.HeaderCorrelationID},
			ExposedHeaders: []string{middleware.HeaderCorrelationID},
			// cookies only go to origins that are named explicitly
			AllowCredentials: !slices.Contains(opts.AllowOrigins, "*"),
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chimw.Timeout(opts.RequestTimeout))
		}

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/merge", h.MergeCart)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{lineId}", h.UpdateItem)
			r.Delete("/items/{lineId}", h.RemoveItem)
		})

		r.Get("/api/products/{productId}/variants", h.ListVariants)
		r.Get("/api/products/{productId}/variants/resolve", h.ResolveVariant)
		r.Get("/api/variants/{variantId}/price", h.PriceOf)
	})

	return r
}
