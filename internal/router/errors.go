package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorHandler renders every error that escapes a handler as {"error": msg}.
// Outside dev, errors that are not echo.HTTPError are reported as a bare
// 500 and only logged.
func errorHandler(dev bool, log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := http.StatusInternalServerError, "Internal server error"
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
			switch status {
			case http.StatusNotFound:
				msg = "Route not found"
			case http.StatusMethodNotAllowed:
				msg = "Method not allowed"
			default:
				if s, ok := he.Message.(string); ok {
					msg = s
				} else {
					msg = http.StatusText(status)
				}
			}
		case dev:
			msg = err.Error()
		}
		if status >= http.StatusInternalServerError && log != nil {
			log.ErrorContext(context.Background(), "unhandled error", "path", c.Path(), "err", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, echo.Map{"error": msg})
	}
}
