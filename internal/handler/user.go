package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/service"
)

// Purger drops cached user reads after a write.
type Purger interface {
	Purge(ctx context.Context)
}

// UserHandler serves the /user endpoints.
type UserHandler struct {
	Users *service.UserService
	Cache Purger
	Log   logging.Logger
}

func NewUserHandler(users *service.UserService, cache Purger, log logging.Logger) *UserHandler {
	return &UserHandler{Users: users, Cache: cache, Log: log}
}

type batchReq struct {
	Users []service.NewUser `validate:"min=1,max=100,dive"`
}

func (h *UserHandler) written(ctx context.Context) {
	if h.Cache != nil {
		h.Cache.Purge(ctx)
	}
}

// Create: POST /user/create
func (h *UserHandler) Create(c echo.Context) error {
	var req service.NewUser
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.written(ctx)
	return c.JSON(http.StatusOK, u)
}

// CreateBatch: POST /user/create-batch with a JSON array body.
func (h *UserHandler) CreateBatch(c echo.Context) error {
	var req batchReq
	if err := c.Bind(&req.Users); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": describe(err)})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	users, err := h.Users.CreateBatch(ctx, req.Users)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.written(ctx)
	return c.JSON(http.StatusOK, users)
}

// All: GET /user/get/all
func (h *UserHandler) All(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, users)
}

// ByEmail: GET /user/get/email/:email
func (h *UserHandler) ByEmail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, c.Param("email"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// ByID: GET /user/get/id/:id
func (h *UserHandler) ByID(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update: PATCH /user/update/:id
func (h *UserHandler) Update(c echo.Context) error {
	var req service.UserPatch
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Update(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.written(ctx)
	return c.JSON(http.StatusOK, u)
}

// Delete: DELETE /user/delete/:id
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	h.written(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// MergeInfo: POST /user/user_info/create/:id
func (h *UserHandler) MergeInfo(c echo.Context) error {
	var req service.UserInfo
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.MergeInfo(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.written(ctx)
	return c.JSON(http.StatusOK, u)
}
