package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/handler"
)

// RegisterUsers registers the /user endpoints. Registration is open; every
// other route requires a session. Reads go through the response cache,
// which sits behind authentication.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, requireAuth, cache echo.MiddlewareFunc) {
	g := e.Group("/user")
	g.POST("/create", h.Create)

	auth := g.Group("", requireAuth)
	auth.POST("/create-batch", h.CreateBatch)
	auth.PATCH("/update/:id", h.Update)
	auth.DELETE("/delete/:id", h.Delete)
	auth.POST("/user_info/create/:id", h.MergeInfo)

	reads := auth.Group("/get", cache)
	reads.GET("/all", h.All)
	reads.GET("/email/:email", h.ByEmail)
	reads.GET("/id/:id", h.ByID)
}
