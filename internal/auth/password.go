package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher hashes and compares passwords with bcrypt. Calls block on a
// weighted semaphore so at most HashWorkers hashes run at once.
type Hasher struct {
	cost  int
	slots *semaphore.Weighted
	// dummy is compared against when no credential exists so that a
	// failed login always costs one bcrypt comparison.
	dummy []byte
}

// NewHasher builds a Hasher from cfg.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.HashWorkers <= 0 {
		cfg.HashWorkers = 4
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("koemail-dummy-password"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	return &Hasher{cost: cfg.BcryptCost, slots: semaphore.NewWeighted(cfg.HashWorkers), dummy: dummy}, nil
}

// Hash returns a salted bcrypt hash of plain.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether plain matches hash. A malformed hash never
// matches.
func (h *Hasher) Compare(ctx context.Context, hash, plain string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	// Mismatches and unparseable stored hashes are both a plain "no".
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil, nil
}

// burn spends one comparison against the dummy hash.
func (h *Hasher) burn(ctx context.Context, plain string) {
	_, _ = h.Compare(ctx, string(h.dummy), plain)
}
