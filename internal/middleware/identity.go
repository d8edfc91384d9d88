package middleware

// identity.go holds helpers shared by the middleware in this package and
// by handlers: reading the principal that Authenticate attached.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
)

const principalKey = "principal"

// Principal returns the principal attached by Authenticate.
func Principal(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}

// SetPrincipal attaches p to both the echo context and the request
// context.
func SetPrincipal(c echo.Context, p auth.Principal) {
	c.Set(principalKey, p)
	c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), p)))
}

// userID returns the caller's id as a string, or "anon" before
// authentication.
func userID(c echo.Context) string {
	if p, ok := Principal(c); ok {
		return strconv.FormatInt(p.UserID, 10)
	}
	return "anon"
}
