package merge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/http/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

type fakeMerger struct {
	res    Result
	err    error
	calls  int
	userID string
	token  string
}

func (f *fakeMerger) MergeGuestCart(ctx context.Context, userID, guestToken string, now time.Time) (Result, error) {
	f.calls++
	f.userID, f.token = userID, guestToken
	return f.res, f.err
}

type fakePublisher struct {
	meta     events.EventMeta
	payloads []events.CartMergedPayload
	err      error
}

func (f *fakePublisher) PublishCartMerged(ctx context.Context, meta events.EventMeta, payload events.CartMergedPayload) error {
	f.meta = meta
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeForgetter struct {
	tokens []string
	err    error
}

func (f *fakeForgetter) Forget(ctx context.Context, token string) error {
	f.tokens = append(f.tokens, token)
	return f.err
}

func requestWithGuest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/cart/merge", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: token})
	}
	return req.WithContext(middleware.WithCorrelationID(req.Context(), "cid-9"))
}

func clearedCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == identity.GuestCookieName {
			return c
		}
	}
	return nil
}

func TestCoordinator_MergeOnAuth(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	merger := &fakeMerger{res: Result{Merged: true, GuestID: guestID, CartID: userCart, Lines: 2, Units: 3}}
	pub := &fakePublisher{}
	forget := &fakeForgetter{}
	c := NewCoordinator(merger, pub, logger.FromCore(core), Options{Forget: forget})

	req := requestWithGuest(guestTok)
	rr := httptest.NewRecorder()
	c.MergeOnAuth(req.Context(), rr, req, mergeUser)

	assert.Equal(t, mergeUser, merger.userID)
	assert.Equal(t, guestTok, merger.token)
	assert.Equal(t, []string{guestTok}, forget.tokens)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "cid-9", pub.meta.CorrelationID)
	assert.Equal(t, userCart, pub.meta.PartitionKey)
	assert.Equal(t, 3, pub.payloads[0].MergedUnits)

	cookie := clearedCookie(t, rr)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Equal(t, 1, logs.FilterMessage("guest cart merged").Len())
}

func TestCoordinator_NoGuestCookieIsNoop(t *testing.T) {
	merger := &fakeMerger{}
	c := NewCoordinator(merger, nil, logger.Nop(), Options{})

	req := requestWithGuest("")
	rr := httptest.NewRecorder()
	c.MergeOnAuth(req.Context(), rr, req, mergeUser)

	assert.Zero(t, merger.calls)
	assert.Nil(t, clearedCookie(t, rr))
}

func TestCoordinator_FailureIsSwallowedAndCookieCleared(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	merger := &fakeMerger{err: errors.New("deadlock")}
	pub := &fakePublisher{}
	c := NewCoordinator(merger, pub, logger.FromCore(core), Options{SecureCookie: true})

	req := requestWithGuest(guestTok)
	rr := httptest.NewRecorder()
	c.MergeOnAuth(req.Context(), rr, req, mergeUser)

	assert.Empty(t, pub.payloads)
	cookie := clearedCookie(t, rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)

	entries := logs.FilterMessage("guest cart merge failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "cid-9", entries[0].ContextMap()["correlationId"])
}

func TestCoordinator_ExpiredGuestClearsCookieWithoutEvent(t *testing.T) {
	merger := &fakeMerger{res: Result{Merged: false}}
	pub := &fakePublisher{}
	forget := &fakeForgetter{}
	c := NewCoordinator(merger, pub, logger.Nop(), Options{Forget: forget})

	req := requestWithGuest(guestTok)
	rr := httptest.NewRecorder()
	c.MergeOnAuth(req.Context(), rr, req, mergeUser)

	assert.Empty(t, pub.payloads)
	assert.Empty(t, forget.tokens)
	assert.NotNil(t, clearedCookie(t, rr))
}

func TestCoordinator_ForgetFailureIsLoggedAsError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	merger := &fakeMerger{res: Result{Merged: true, GuestID: guestID, CartID: userCart, Lines: 1, Units: 1}}
	pub := &fakePublisher{}
	forget := &fakeForgetter{err: errors.New("redis: connection refused")}
	c := NewCoordinator(merger, pub, logger.FromCore(core), Options{Forget: forget})

	req := requestWithGuest(guestTok)
	rr := httptest.NewRecorder()
	c.MergeOnAuth(req.Context(), rr, req, mergeUser)

	entries := logs.FilterMessage("forget merged guest").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, guestID, entries[0].ContextMap()["guestId"])
	assert.Len(t, pub.payloads, 1, "merge still completes")
	assert.NotNil(t, clearedCookie(t, rr))
}

func TestCoordinator_PublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	merger := &fakeMerger{res: Result{Merged: true, GuestID: guestID, CartID: userCart, Lines: 1, Units: 1}}
	c := NewCoordinator(merger, &fakePublisher{err: errors.New("channel closed")}, logger.FromCore(core), Options{})

	req := requestWithGuest(guestTok)
	rr := httptest.NewRecorder()
	c.MergeOnAuth(req.Context(), rr, req, mergeUser)

	assert.Equal(t, 1, logs.FilterMessage("publish CartMerged").Len())
	assert.NotNil(t, clearedCookie(t, rr))
}
