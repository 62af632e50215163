package merge

import (
	"context"
	"net/http"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/http/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

type EventPublisher interface {
	PublishCartMerged(ctx context.Context, meta events.EventMeta, payload events.CartMergedPayload) error
}

// guestForgetter drops cached guest lookups. Satisfied by identity.CachedGuestStore.
type guestForgetter interface {
	Forget(ctx context.Context, token string) error
}

type Options struct {
	SecureCookie bool
	// Forget, when set, is told about every merged guest token.
	Forget guestForgetter
}

// Coordinator runs the sign-in merge. It never fails the caller: errors are logged and swallowed.
type Coordinator struct {
	repo      Repository
	publisher EventPublisher
	forget    guestForgetter
	secure    bool
	log       *logger.Logger
	now       func() time.Time
}

func NewCoordinator(repo Repository, publisher EventPublisher, log *logger.Logger, opts Options) *Coordinator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Coordinator{
		repo:      repo,
		publisher: publisher,
		forget:    opts.Forget,
		secure:    opts.SecureCookie,
		log:       log,
		now:       time.Now,
	}
}

// MergeOnAuth moves the request's guest cart into userID's cart and clears the guest cookie.
// The cookie is cleared even when the merge fails so a stale guest is not resurrected.
func (c *Coordinator) MergeOnAuth(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) {
	token := identity.GuestToken(r)
	if token == "" || userID == "" {
		return
	}
	defer identity.ClearGuestCookie(w, c.secure)

	log := c.log.With("userId", userID, "correlationId", middleware.GetCorrelationID(ctx))

	res, err := c.repo.MergeGuestCart(ctx, userID, token, c.now())
	if err != nil {
		log.Error("guest cart merge failed", "error", err)
		return
	}
	if !res.Merged {
		log.Debug("no live guest to merge")
		return
	}

	if c.forget != nil {
		if err := c.forget.Forget(ctx, token); err != nil {
			// a stale entry resolves to a deleted guest until the cache ttl runs out
			log.Error("forget merged guest", "guestId", res.GuestID, "error", err)
		}
	}

	log.Info("guest cart merged", "guestId", res.GuestID, "cartId", res.CartID, "lines", res.Lines, "units", res.Units)

	err = c.publisher.PublishCartMerged(ctx, events.EventMeta{
		CorrelationID: middleware.GetCorrelationID(ctx),
		PartitionKey:  res.CartID,
	}, events.CartMergedPayload{
		UserID:      userID,
		CartID:      res.CartID,
		GuestID:     res.GuestID,
		MergedLines: res.Lines,
		MergedUnits: res.Units,
		Timestamp:   c.now().UTC(),
	})
	if err != nil {
		log.Warn("publish CartMerged", "error", err)
	}
}
