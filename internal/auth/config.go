package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenLifetime is how long an access token stays valid after issuance.
const TokenLifetime = 24 * time.Hour

// DefaultBcryptCost keeps a single hash in the 100-300ms range on
// current server hardware.
const DefaultBcryptCost = 12

// MinPasswordLength applies to new passwords set through ChangePassword.
const MinPasswordLength = 8

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// Config is shared by the Verifier and the Gate. It is passed in at
// construction so neither component reads process-wide state.
type Config struct {
	// Secret signs and verifies access tokens.
	Secret []byte
	// BcryptCost defaults to DefaultBcryptCost when zero.
	BcryptCost int
	// HashWorkers bounds concurrent bcrypt operations. Zero means 4.
	HashWorkers int64
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() (Config, error) {
	if len(c.Secret) == 0 {
		return c, errors.New("auth: signing secret is required")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = DefaultBcryptCost
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return c, errors.New("auth: bcrypt cost out of range")
	}
	if c.HashWorkers <= 0 {
		c.HashWorkers = 4
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}
