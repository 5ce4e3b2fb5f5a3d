package middleware

// identity.go exposes the caller identity that CookieAuth stores on the
// Echo context.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// UserID returns the authenticated user's id, or "" outside CookieAuth.
func UserID(c echo.Context) string {
	v, _ := c.Get(ctxUserID).(string)
	return v
}

// Email returns the authenticated user's email, or "" outside CookieAuth.
func Email(c echo.Context) string {
	v, _ := c.Get(ctxEmail).(string)
	return v
}
