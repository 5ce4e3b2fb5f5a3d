package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestHelper_SetAttributes(t *testing.T) {
	h := NewHelper(Config{AccessTTL: 15 * time.Minute, RefreshTTL: 30 * 24 * time.Hour})
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/login", nil))

	h.SetAccess(c, "a")
	h.SetRefresh(c, "r")

	got := cookiesByName(rec)
	require.Contains(t, got, AccessTokenCookie)
	require.Contains(t, got, RefreshTokenCookie)

	access := got[AccessTokenCookie]
	assert.Equal(t, "a", access.Value)
	assert.False(t, access.HttpOnly)
	assert.False(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, 900, access.MaxAge)
	assert.Equal(t, "/", access.Path)

	refresh := got[RefreshTokenCookie]
	assert.Equal(t, "r", refresh.Value)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, refresh.SameSite)
	assert.Equal(t, 30*24*3600, refresh.MaxAge)
}

func TestHelper_SecureFlag(t *testing.T) {
	h := NewHelper(Config{Secure: true, AccessTTL: time.Minute, RefreshTTL: time.Hour})
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/login", nil))
	h.SetAccess(c, "a")
	h.SetRefresh(c, "r")
	for _, ck := range rec.Result().Cookies() {
		assert.True(t, ck.Secure, ck.Name)
	}
}

func TestHelper_Clear(t *testing.T) {
	h := NewHelper(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/logout", nil))
	h.Clear(c)

	got := cookiesByName(rec)
	require.Len(t, got, 2)
	for _, ck := range got {
		assert.Equal(t, "", ck.Value)
		assert.Equal(t, -1, ck.MaxAge)
	}
}

func TestHelper_Read(t *testing.T) {
	h := NewHelper(Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a"})
	c, _ := newContext(req)

	assert.Equal(t, "a", h.Access(c))
	assert.Equal(t, "", h.Refresh(c))
}
