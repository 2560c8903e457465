package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const CookieName = "token"

// SetSessionCookie writes the session token as an HttpOnly cross-site cookie.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearSessionCookie expires the cookie immediately (Max-Age=0).
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}

var (
	ErrNoCredential        = errors.New("no credential")
	ErrMalformedCredential = errors.New("malformed authorization header")
)

// TokenFromRequest reads the session cookie, then an Authorization bearer
// header. A header that is present but not "Bearer <token>" is
// ErrMalformedCredential.
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", ErrNoCredential
	}
	scheme, token, _ := strings.Cut(authHeader, " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMalformedCredential
	}
	return token, nil
}
