package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/cookie"
	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/middleware"
	"github.com/iliyamo/user-auth-service/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies *cookie.Helper
	Log     logging.Logger
}

func NewAuthHandler(auth *service.AuthService, cookies *cookie.Helper, log logging.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login: verify credentials, set both cookies and return the pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, h.Log, err)
	}
	h.Cookies.SetAccess(c, pair.Access.Token)
	h.Cookies.SetRefresh(c, pair.Refresh.Token)
	return c.JSON(http.StatusOK, loginResp{AccessToken: pair.Access.Token, RefreshToken: pair.Refresh.Token})
}

// Logout: clear both cookies; the refresh token is revoked when configured.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.Logout(ctx, h.Cookies.Refresh(c)); err != nil {
		h.Log.Error(ctx, "logout revoke failed", "error", err)
	}
	h.Cookies.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ProtectedRoot greets the authenticated caller.
func (h *AuthHandler) ProtectedRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Hello, %s", middleware.Email(c))})
}
