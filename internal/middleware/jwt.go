package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
)

// Authenticate validates the bearer token on every request it wraps. On
// success the principal is stored in the echo context and in the request
// context; otherwise the chain stops with 401 and the handler never runs.
func Authenticate(gate *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.ExtractToken(c.Request())
			if err != nil {
				return deny(c, err)
			}
			p, err := gate.Verify(raw)
			if err != nil {
				return deny(c, err)
			}

			SetPrincipal(c, p)
			return next(c)
		}
	}
}

func deny(c echo.Context, err error) error {
	status, msg := auth.Describe(err)
	return c.JSON(status, echo.Map{"error": msg})
}
