package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/handler"
	"github.com/iliyamo/koemail-admin/internal/middleware"
)

// RegisterUsers registers /api/users. Listing, creating and deleting are
// admin only. Reading and updating a single record is allowed to its
// owner; the ownership check runs before the record is loaded.
func RegisterUsers(api *echo.Group, h *handler.UserHandler, gate *auth.Gate) {
	g := api.Group("/users", middleware.Authenticate(gate))
	admin := middleware.RequireAdmin(gate)
	owner := middleware.RequireOwnershipOrAdmin(gate, "id")

	g.GET("", h.List, admin)
	g.POST("", h.Create, admin)
	g.GET("/:id", h.Get, owner)
	g.PUT("/:id", h.Update, owner)
	g.DELETE("/:id", h.Delete, admin)
}

// RegisterSpam registers the caller's own quarantine endpoints. Any
// authenticated user may use them; the store scopes every query to the
// caller.
func RegisterSpam(api *echo.Group, h *handler.SpamHandler, gate *auth.Gate) {
	g := api.Group("/spam", middleware.Authenticate(gate))
	g.GET("/quarantine", h.List)
	g.POST("/quarantine/:id/release", h.Release)
}
