package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSessionCookie_Attributes(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "abc", DefaultTokenTTL, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, true)

	header := rec.Header().Get("Set-Cookie")
	assert.Contains(t, header, "token=")
	assert.Contains(t, header, "Max-Age=0")
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
		req.Header.Set("Authorization", "Bearer from-header")

		token, err := TokenFromRequest(req)
		assert.NoError(t, err)
		assert.Equal(t, "from-cookie", token)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer from-header")

		token, err := TokenFromRequest(req)
		assert.NoError(t, err)
		assert.Equal(t, "from-header", token)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := TokenFromRequest(req)
		assert.ErrorIs(t, err, ErrNoCredential)
	})

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Token x", "Bearer", "Bearer   "} {
		t.Run("malformed "+header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			_, err := TokenFromRequest(req)
			assert.ErrorIs(t, err, ErrMalformedCredential)
		})
	}
}
