package auth

import (
	"errors"
	"net/http"
)

// Client-facing messages. They are deliberately coarse: expired and
// forged tokens read the same, as do role and ownership refusals.
const (
	MsgTokenRequired      = "Access token required"
	MsgInvalidToken       = "Invalid or expired token"
	MsgInvalidCredentials = "Invalid email or password"
	MsgForbidden          = "Insufficient permissions"
	MsgIncorrectPassword  = "Current password is incorrect"
	MsgWeakPassword       = "New password must be at least 8 characters"
	MsgPasswordTooLong    = "New password must be at most 72 bytes"
	MsgInternal           = "Internal server error"
)

// Describe maps an error from this package to an HTTP status and a
// message safe to show to clients. Unknown errors are 500.
func Describe(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, MsgTokenRequired
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
		return http.StatusUnauthorized, MsgInvalidToken
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgInvalidCredentials
	case errors.Is(err, ErrInsufficientRole), errors.Is(err, ErrInsufficientPermissions):
		return http.StatusForbidden, MsgForbidden
	case errors.Is(err, ErrIncorrectCurrentPassword):
		return http.StatusBadRequest, MsgIncorrectPassword
	case errors.Is(err, ErrWeakPassword):
		return http.StatusBadRequest, MsgWeakPassword
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, MsgPasswordTooLong
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
