package identity

import (
	"net/http"
	"time"
)

const GuestCookieName = "guest_session"

func setGuestCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearGuestCookie expires the guest-session cookie on the client.
func ClearGuestCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GuestToken returns the guest-session token carried by the request, if any.
func GuestToken(r *http.Request) string {
	c, err := r.Cookie(GuestCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
