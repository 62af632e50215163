package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the external identity provider tells us about the caller.
type Session struct {
	UserID string
}

// SessionProvider returns the authenticated session for a request, or nil when there is none.
type SessionProvider interface {
	CurrentSession(r *http.Request) (*Session, error)
}

// JWTSessionProvider verifies HS256 session tokens issued by the auth service. The token is
// read from the Authorization header first, then from the session cookie.
type JWTSessionProvider struct {
	secret     []byte
	cookieName string
}

func NewJWTSessionProvider(secret, cookieName string) *JWTSessionProvider {
	return &JWTSessionProvider{secret: []byte(secret), cookieName: cookieName}
}

func (p *JWTSessionProvider) CurrentSession(r *http.Request) (*Session, error) {
	raw := bearerToken(r)
	if raw == "" && p.cookieName != "" {
		if c, err := r.Cookie(p.cookieName); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return nil, nil
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("session token has no subject")
	}
	return &Session{UserID: claims.Subject}, nil
}

// SignSessionToken issues a token the provider accepts. Used by tests and local tooling.
func SignSessionToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
