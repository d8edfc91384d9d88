package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/koemail-admin/internal/auth"
	"github.com/iliyamo/koemail-admin/internal/middleware"
	"github.com/iliyamo/koemail-admin/internal/service"
)

// requestTimeout bounds the store work done by a single handler.
const requestTimeout = 5 * time.Second

// Auditor records security-relevant actions. *service.Auditor satisfies it.
type Auditor interface {
	Record(ctx context.Context, e service.Entry)
}

// PasswordHasher hashes new account passwords. *auth.Hasher satisfies it.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

func messageJSON(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// writeAuthError renders an auth package error with its status and the
// fixed client message. Internal details never reach the response.
func writeAuthError(c echo.Context, err error) error {
	status, msg := auth.Describe(err)
	return errorJSON(c, status, msg)
}

func internalError(c echo.Context) error {
	return errorJSON(c, http.StatusInternalServerError, auth.MsgInternal)
}

// principal returns the authenticated caller. Routes using it sit behind
// middleware.Authenticate, so a missing principal is treated as 401.
func principal(c echo.Context) (auth.Principal, bool) {
	return middleware.Principal(c)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// validEmail accepts a bare addr-spec such as "user@example.com". Display
// names and angle brackets are rejected.
func validEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && at < len(s)-1
}

func record(c echo.Context, a Auditor, e service.Entry) {
	if a == nil {
		return
	}
	e.RemoteIP = c.RealIP()
	a.Record(c.Request().Context(), e)
}
