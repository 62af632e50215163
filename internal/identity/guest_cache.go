package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

const guestCachePrefix = "guest_session:"

type redisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

type cachedGuest struct {
	GuestID   string    `json:"guestId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CachedGuestStore is a read-through redis cache in front of a GuestStore. Redis failures
// degrade to the underlying store; they never fail a lookup on their own.
type CachedGuestStore struct {
	next GuestStore
	rdb  redisClient
	ttl  time.Duration
	log  *logger.Logger
}

func NewCachedGuestStore(next GuestStore, rdb redisClient, ttl time.Duration, log *logger.Logger) *CachedGuestStore {
	return &CachedGuestStore{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With("component", "GuestCache"),
	}
}

func (c *CachedGuestStore) FindActive(ctx context.Context, token string, now time.Time) (GuestIdentity, error) {
	raw, err := c.rdb.Get(ctx, guestCachePrefix+token).Bytes()
	switch {
	case err == nil:
		var cg cachedGuest
		if jsonErr := json.Unmarshal(raw, &cg); jsonErr == nil {
			g := GuestIdentity{GuestID: cg.GuestID, SessionToken: token, ExpiresAt: cg.ExpiresAt}
			if g.ValidAt(now) {
				return g, nil
			}
		}
	case !errors.Is(err, goredis.Nil):
		c.log.Warn("guest cache read failed", "error", err)
	}

	g, err := c.next.FindActive(ctx, token, now)
	if err != nil {
		return GuestIdentity{}, err
	}
	c.store(ctx, g, now)
	return g, nil
}

func (c *CachedGuestStore) Create(ctx context.Context, token string, expiresAt time.Time) (GuestIdentity, error) {
	g, err := c.next.Create(ctx, token, expiresAt)
	if err != nil {
		return GuestIdentity{}, err
	}
	c.store(ctx, g, time.Now())
	return g, nil
}

func (c *CachedGuestStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return c.next.DeleteExpired(ctx, before)
}

// Forget drops a cached session, e.g. once the guest has been merged away.
func (c *CachedGuestStore) Forget(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, guestCachePrefix+token).Err()
}

func (c *CachedGuestStore) store(ctx context.Context, g GuestIdentity, now time.Time) {
	ttl := c.ttl
	if remaining := g.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(cachedGuest{GuestID: g.GuestID, ExpiresAt: g.ExpiresAt})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, guestCachePrefix+g.SessionToken, raw, ttl).Err(); err != nil {
		c.log.Warn("guest cache write failed", "error", err)
	}
}
