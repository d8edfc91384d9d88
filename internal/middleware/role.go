package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
)

// RequireAdmin rejects callers without the admin role with 403. It must
// run after Authenticate.
func RequireAdmin(gate *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return deny(c, auth.ErrMissingToken)
			}
			if err := gate.RequireRole(p, auth.RoleAdmin); err != nil {
				return deny(c, err)
			}
			return next(c)
		}
	}
}

// RequireOwnershipOrAdmin lets a request through when the caller is an
// admin or the path parameter param names the caller's own id. The check
// runs before any lookup, so a refusal is the same whether or not the
// target exists.
func RequireOwnershipOrAdmin(gate *auth.Gate, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return deny(c, auth.ErrMissingToken)
			}
			ownerID, err := strconv.ParseInt(c.Param(param), 10, 64)
			if err != nil || ownerID <= 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid id"})
			}
			if err := gate.RequireOwnershipOrAdmin(p, ownerID); err != nil {
				return deny(c, err)
			}
			return next(c)
		}
	}
}
