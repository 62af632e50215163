package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

type fakeSessions struct {
	session *Session
	err     error
}

func (f fakeSessions) CurrentSession(r *http.Request) (*Session, error) {
	return f.session, f.err
}

type fakeGuestStore struct {
	guests    map[string]GuestIdentity
	findErr   error
	createErr error
	created   int
	swept     time.Time
}

func newFakeGuestStore() *fakeGuestStore {
	return &fakeGuestStore{guests: map[string]GuestIdentity{}}
}

func (f *fakeGuestStore) FindActive(ctx context.Context, token string, now time.Time) (GuestIdentity, error) {
	if f.findErr != nil {
		return GuestIdentity{}, f.findErr
	}
	g, ok := f.guests[token]
	if !ok || !g.ValidAt(now) {
		return GuestIdentity{}, ErrGuestNotFound
	}
	return g, nil
}

func (f *fakeGuestStore) Create(ctx context.Context, token string, expiresAt time.Time) (GuestIdentity, error) {
	if f.createErr != nil {
		return GuestIdentity{}, f.createErr
	}
	f.created++
	g := GuestIdentity{GuestID: "guest-" + token, SessionToken: token, ExpiresAt: expiresAt}
	f.guests[token] = g
	return g, nil
}

func (f *fakeGuestStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.swept = before
	var n int64
	for k, g := range f.guests {
		if !g.ExpiresAt.After(before) {
			delete(f.guests, k)
			n++
		}
	}
	return n, nil
}

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestResolver(sessions SessionProvider, store GuestStore, secure bool) *Resolver {
	r := NewResolver(sessions, store, logger.Nop(), ResolverOptions{SecureCookie: secure})
	r.now = func() time.Time { return fixedNow }
	r.newToken = func() string { return "tok-new" }
	return r
}

func guestCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == GuestCookieName {
			return c
		}
	}
	return nil
}

func TestResolve_AuthenticatedUser(t *testing.T) {
	store := newFakeGuestStore()
	r := newTestResolver(fakeSessions{session: &Session{UserID: "user-1"}}, store, false)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "tok-old"})
	rec := httptest.NewRecorder()

	id, err := r.Resolve(rec, req)
	require.NoError(t, err)
	assert.Equal(t, UserIdentity{UserID: "user-1"}, id)
	assert.Zero(t, store.created)
	assert.Nil(t, guestCookie(t, rec))
}

func TestResolve_ExistingGuest(t *testing.T) {
	store := newFakeGuestStore()
	store.guests["tok-live"] = GuestIdentity{GuestID: "g-1", SessionToken: "tok-live", ExpiresAt: fixedNow.Add(time.Hour)}
	r := newTestResolver(fakeSessions{}, store, false)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "tok-live"})
	rec := httptest.NewRecorder()

	id, err := r.Resolve(rec, req)
	require.NoError(t, err)
	g, ok := id.(GuestIdentity)
	require.True(t, ok)
	assert.Equal(t, "g-1", g.GuestID)
	assert.Zero(t, store.created)
	assert.Nil(t, guestCookie(t, rec), "existing guest must not be re-issued a cookie")
}

func TestResolve_MintsGuestWhenAbsent(t *testing.T) {
	store := newFakeGuestStore()
	r := newTestResolver(fakeSessions{}, store, true)

	rec := httptest.NewRecorder()
	id, err := r.Resolve(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.NoError(t, err)

	g, ok := id.(GuestIdentity)
	require.True(t, ok)
	assert.Equal(t, "tok-new", g.SessionToken)
	assert.Equal(t, fixedNow.Add(DefaultGuestTTL), g.ExpiresAt)
	assert.Equal(t, 1, store.created)

	c := guestCookie(t, rec)
	require.NotNil(t, c)
	assert.Equal(t, "tok-new", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
}

func TestResolve_ExpiredGuestIsReplaced(t *testing.T) {
	store := newFakeGuestStore()
	store.guests["tok-old"] = GuestIdentity{GuestID: "g-old", SessionToken: "tok-old", ExpiresAt: fixedNow.Add(-time.Minute)}
	r := newTestResolver(fakeSessions{}, store, false)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "tok-old"})
	rec := httptest.NewRecorder()

	id, err := r.Resolve(rec, req)
	require.NoError(t, err)
	g := id.(GuestIdentity)
	assert.NotEqual(t, "g-old", g.GuestID)
	assert.Equal(t, 1, store.created)
	c := guestCookie(t, rec)
	require.NotNil(t, c)
	assert.False(t, c.Secure)
}

func TestResolve_InvalidSessionFallsBackToGuest(t *testing.T) {
	store := newFakeGuestStore()
	r := newTestResolver(fakeSessions{err: errors.New("signature is invalid")}, store, false)

	id, err := r.Resolve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.NoError(t, err)
	_, isGuest := id.(GuestIdentity)
	assert.True(t, isGuest)
}

func TestResolve_GuestInsertFailure(t *testing.T) {
	store := newFakeGuestStore()
	store.createErr = errors.New("db down")
	r := newTestResolver(fakeSessions{}, store, false)

	rec := httptest.NewRecorder()
	id, err := r.Resolve(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Nil(t, id)
	assert.ErrorIs(t, err, ErrIdentityUnavailable)
	assert.Nil(t, guestCookie(t, rec), "no cookie without a backing guest row")
}

func TestResolve_GuestLookupFailure(t *testing.T) {
	store := newFakeGuestStore()
	store.findErr = errors.New("timeout")
	r := newTestResolver(fakeSessions{}, store, false)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "tok-live"})

	_, err := r.Resolve(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrIdentityUnavailable)
	assert.Zero(t, store.created)
}

func TestClearGuestCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearGuestCookie(rec, true)

	c := guestCookie(t, rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}
