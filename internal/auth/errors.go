package auth

import "errors"

// Authentication failures. Handlers answer these with 401.
var (
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Authorization failures. Handlers answer these with 403.
var (
	ErrInsufficientRole        = errors.New("insufficient role")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// Password change validation failures. Handlers answer these with 400.
var (
	ErrIncorrectCurrentPassword = errors.New("current password is incorrect")
	ErrWeakPassword             = errors.New("password too short")
	ErrPasswordTooLong          = errors.New("password too long")
)

// ErrInternal wraps store and signing failures. Its details must never
// reach the client.
var ErrInternal = errors.New("internal error")

// ErrCredentialNotFound is returned by a CredentialStore when no record
// matches. It never leaves this package unmapped.
var ErrCredentialNotFound = errors.New("credential not found")
