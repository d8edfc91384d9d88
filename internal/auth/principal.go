// Package auth authenticates administrators and standard mailbox users and
// authorizes what they may do. It issues and verifies stateless HS256
// access tokens, hashes passwords with bcrypt and implements the two
// authorization policies used by the API: role gating and ownership gating.
package auth

import (
	"context"
	"time"
)

// Role is the privilege level carried in an access token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStandard
}

// RoleFromFlag maps the users.admin column to a Role.
func RoleFromFlag(admin bool) Role {
	if admin {
		return RoleAdmin
	}
	return RoleStandard
}

// Principal is the identity attached to a request after its token was
// verified. It is rebuilt from claims on every request and never stored.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owns reports whether the resource identified by ownerID belongs to p.
func (p Principal) Owns(ownerID int64) bool { return p.UserID == ownerID }

// Credential is the persisted record used to authenticate a login.
type Credential struct {
	UserID       int64
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	Role         Role
}

// CredentialStore is the slice of the user store the verifier needs.
// Implementations return ErrCredentialNotFound when no row matches.
type CredentialStore interface {
	FindCredentialByEmail(ctx context.Context, email string) (Credential, error)
	FindCredentialByID(ctx context.Context, id int64) (Credential, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
