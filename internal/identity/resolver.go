package identity

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

const DefaultGuestTTL = 7 * 24 * time.Hour

type ResolverOptions struct {
	GuestTTL     time.Duration
	SecureCookie bool
}

// Resolver decides who is behind a request: an authenticated user or an anonymous guest.
type Resolver struct {
	sessions SessionProvider
	guests   GuestStore
	log      *logger.Logger
	opts     ResolverOptions

	now      func() time.Time
	newToken func() string
}

func NewResolver(sessions SessionProvider, guests GuestStore, log *logger.Logger, opts ResolverOptions) *Resolver {
	if opts.GuestTTL <= 0 {
		opts.GuestTTL = DefaultGuestTTL
	}
	return &Resolver{
		sessions: sessions,
		guests:   guests,
		log:      log.With("component", "IdentityResolver"),
		opts:     opts,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

func (r *Resolver) SecureCookie() bool {
	return r.opts.SecureCookie
}

// CurrentUser reports the authenticated user, if any. Provider errors count as "no session".
func (r *Resolver) CurrentUser(req *http.Request) (UserIdentity, bool) {
	s, err := r.sessions.CurrentSession(req)
	if err != nil {
		r.log.Debug("session rejected", "error", err)
		return UserIdentity{}, false
	}
	if s == nil || s.UserID == "" {
		return UserIdentity{}, false
	}
	return UserIdentity{UserID: s.UserID}, true
}

// Resolve returns the caller's identity, minting a guest (and its cookie) when the request
// carries neither a session nor a live guest token.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) (Identity, error) {
	if u, ok := r.CurrentUser(req); ok {
		return u, nil
	}

	ctx := req.Context()
	now := r.now()

	if token := GuestToken(req); token != "" {
		g, err := r.guests.FindActive(ctx, token, now)
		switch {
		case err == nil:
			return g, nil
		case errors.Is(err, ErrGuestNotFound):
			// expired or unknown; mint a fresh one below
		default:
			r.log.Error("guest lookup failed", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
	}

	token := r.newToken()
	g, err := r.guests.Create(ctx, token, now.Add(r.opts.GuestTTL))
	if err != nil {
		r.log.Error("guest creation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}
	setGuestCookie(w, token, r.opts.GuestTTL, r.opts.SecureCookie)
	r.log.Debug("guest minted", "guestId", g.GuestID)
	return g, nil
}
