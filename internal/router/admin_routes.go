package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/config"
	"github.com/iliyamo/koemail-admin/internal/handler"
	"github.com/iliyamo/koemail-admin/internal/middleware"
)

// RegisterAdmin registers the admin-only endpoints. Every route needs a
// valid token and the admin role.
func RegisterAdmin(api *echo.Group, d *handler.DomainHandler, s *handler.SettingHandler, gate *auth.Gate, cache config.CacheConfig, rdb *redis.Client) {
	mw := []echo.MiddlewareFunc{middleware.Authenticate(gate), middleware.RequireAdmin(gate)}

	// ---- Domains ----
	domains := api.Group("/domains", mw...)
	domains.GET("", d.ListDomains)
	domains.POST("", d.CreateDomain)

	// ---- Aliases ----
	api.GET("/aliases", d.ListAliases, mw...)

	// ---- Settings ----
	settings := api.Group("/settings", mw...)
	settings.GET("", s.List)
	settings.GET("/:key", s.Get)
	settings.PUT("/:key", s.Update)

	// ---- Stats ----
	// Cached after the role check so entries are keyed by the admin's id.
	api.GET("/stats", s.Summary, append(mw, middleware.ResponseCache(cache, rdb))...)
}
