package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/handler"
)

// RegisterRoutes registers the unauthenticated probe endpoints. ready may be
// nil when the service runs without a database.
func RegisterRoutes(e *echo.Echo, ready handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ready))
}

// RegisterAuth registers login, logout and the protected root. requireAuth
// is the cookie authentication middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, requireAuth echo.MiddlewareFunc) {
	e.POST("/login", a.Login)
	// Logout only clears cookies and must work with an expired session.
	e.POST("/logout", a.Logout)
	e.GET("/protected_root", a.ProtectedRoot, requireAuth)
}
