// Package cookie reads and writes the two session cookies.
package cookie

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// Cookie names
	AccessTokenCookie  = "auth_token"
	RefreshTokenCookie = "refresh_token"
)

// Config controls cookie attributes. AccessTTL and RefreshTTL become the
// Max-Age of the respective cookies.
type Config struct {
	Secure     bool
	Path       string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Helper manages the session cookies.
type Helper struct {
	cfg Config
}

func NewHelper(cfg Config) *Helper {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Helper{cfg: cfg}
}

// SetAccess writes the access cookie. It is readable by scripts.
func (h *Helper) SetAccess(c echo.Context, token string) {
	h.set(c, AccessTokenCookie, token, int(h.cfg.AccessTTL.Seconds()), false)
}

// SetRefresh writes the HTTP-only refresh cookie.
func (h *Helper) SetRefresh(c echo.Context, token string) {
	h.set(c, RefreshTokenCookie, token, int(h.cfg.RefreshTTL.Seconds()), true)
}

// Clear expires both cookies.
func (h *Helper) Clear(c echo.Context) {
	h.set(c, AccessTokenCookie, "", -1, false)
	h.set(c, RefreshTokenCookie, "", -1, true)
}

// Access returns the access cookie value or "".
func (h *Helper) Access(c echo.Context) string { return read(c, AccessTokenCookie) }

// Refresh returns the refresh cookie value or "".
func (h *Helper) Refresh(c echo.Context) string { return read(c, RefreshTokenCookie) }

func read(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (h *Helper) set(c echo.Context, name, value string, maxAge int, httpOnly bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.Path,
		MaxAge:   maxAge,
		Secure:   h.cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}
