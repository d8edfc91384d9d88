package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/config"
	"github.com/iliyamo/koemail-admin/internal/handler"
	"github.com/iliyamo/koemail-admin/internal/middleware"
)

// Deps carries everything New needs to assemble the HTTP API.
type Deps struct {
	Gate  *auth.Gate
	Redis *redis.Client // optional
	Log   *slog.Logger

	Dev         bool
	CORSOrigins []string
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig

	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Domains  *handler.DomainHandler
	Settings *handler.SettingHandler
	Spam     *handler.SpamHandler
}

// New builds the Echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(d.Dev, d.Log)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(
		echomw.Recover(),
		echomw.RequestID(),
		echomw.Secure(),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}),
		echomw.BodyLimit("10M"),
	)
	if d.Log != nil {
		e.Use(middleware.RequestLogger(d.Log))
	}

	RegisterRoutes(e, d.Health)

	api := e.Group("/api", middleware.RateLimit(d.RateLimit, d.Redis))
	RegisterAuth(api, d.Auth, d.Gate)
	RegisterUsers(api, d.Users, d.Gate)
	RegisterAdmin(api, d.Domains, d.Settings, d.Gate, d.Cache, d.Redis)
	RegisterSpam(api, d.Spam, d.Gate)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	if h != nil {
		e.GET("/health", h.Check)
	}
}

// RegisterAuth registers /api/auth. Login is public; the rest need a token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, gate *auth.Gate) {
	g := api.Group("/auth")
	g.POST("/login", a.Login)

	authed := g.Group("", middleware.Authenticate(gate))
	authed.GET("/profile", a.Profile)
	authed.POST("/change-password", a.ChangePassword)
	authed.POST("/logout", a.Logout)
}
