package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/cookie"
	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/service"
)

// Authenticator resolves a request's cookie pair into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, access, refresh string) (*service.Session, error)
}

// CookieAuth returns an Echo middleware that authenticates the request from
// its auth_token and refresh_token cookies. When the access token was
// reissued from the refresh token the new access cookie is set on the
// response. Handlers read the caller through UserID and Email.
func CookieAuth(auth Authenticator, cookies *cookie.Helper, log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			sess, err := auth.Authenticate(ctx, cookies.Access(c), cookies.Refresh(c))
			if errors.Is(err, service.ErrUnauthenticated) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}
			if err != nil {
				log.Error(ctx, "authenticate request", "error", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if sess.Reissued != nil {
				cookies.SetAccess(c, sess.Reissued.Token)
			}
			c.Set(ctxUserID, sess.Claims.UserID)
			c.Set(ctxEmail, sess.Claims.Subject)
			return next(c)
		}
	}
}
