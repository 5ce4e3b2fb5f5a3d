package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/handler"
)

// RegisterTasks registers the background task endpoints under /tasks. All
// of them require a session.
func RegisterTasks(e *echo.Echo, h *handler.TaskHandler, requireAuth echo.MiddlewareFunc) {
	g := e.Group("/tasks", requireAuth)
	g.POST("/email", h.Email)
	g.POST("/process", h.Process)
	g.POST("/progress", h.Progress)
	g.GET("/:id", h.Get)
}
