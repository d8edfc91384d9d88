package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/koemail-admin/internal/logging"
)

// Login is the result of a successful Authenticate call. User never
// carries the password hash.
type Login struct {
	Token Token
	User  Credential
}

// Verifier exchanges email/password pairs for access tokens and lets a
// principal change its own password.
type Verifier struct {
	store  CredentialStore
	hasher *Hasher
	signer *signer
	log    logging.Logger
}

// NewVerifier wires a Verifier. cfg must carry a signing secret.
func NewVerifier(cfg Config, store CredentialStore, hasher *Hasher, log logging.Logger) (*Verifier, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if hasher == nil {
		if hasher, err = NewHasher(cfg); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Verifier{store: store, hasher: hasher, signer: newSigner(cfg), log: log}, nil
}

// Hasher exposes the password hasher so account provisioning uses the
// same cost and worker pool.
func (v *Verifier) Hasher() *Hasher { return v.hasher }

// NormalizeEmail trims and lower-cases an address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks email and password and issues a token. Unknown
// emails, disabled accounts and wrong passwords all yield
// ErrInvalidCredentials.
func (v *Verifier) Authenticate(ctx context.Context, email, password string) (*Login, error) {
	email = NormalizeEmail(email)

	cred, err := v.store.FindCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			v.hasher.burn(ctx, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: load credential: %v", ErrInternal, err)
	}

	// Compare before looking at Active so a disabled account costs the
	// same as a wrong password.
	ok, err := v.hasher.Compare(ctx, cred.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("%w: compare password: %v", ErrInternal, err)
	}
	if !ok || !cred.Active {
		return nil, ErrInvalidCredentials
	}

	tok, err := v.signer.issue(Principal{UserID: cred.UserID, Email: cred.Email, Role: cred.Role})
	if err != nil {
		return nil, err
	}

	if err := v.store.TouchLastLogin(ctx, cred.UserID, tok.IssuedAt); err != nil {
		v.log.Warn(ctx, "record last login failed", "user_id", cred.UserID, "err", err)
	}

	cred.PasswordHash = ""
	return &Login{Token: tok, User: cred}, nil
}

// CheckNewPassword enforces the length rules for a password about to be
// hashed: at least MinPasswordLength characters and at most
// MaxPasswordBytes bytes.
func CheckNewPassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(pw) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// ChangePassword replaces the principal's password after re-checking the
// current one. A failed check leaves the stored hash untouched.
func (v *Verifier) ChangePassword(ctx context.Context, p Principal, current, next string) error {
	if err := CheckNewPassword(next); err != nil {
		return err
	}

	cred, err := v.store.FindCredentialByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			v.hasher.burn(ctx, current)
			return ErrIncorrectCurrentPassword
		}
		return fmt.Errorf("%w: load credential: %v", ErrInternal, err)
	}

	ok, err := v.hasher.Compare(ctx, cred.PasswordHash, current)
	if err != nil {
		return fmt.Errorf("%w: compare password: %v", ErrInternal, err)
	}
	if !ok {
		return ErrIncorrectCurrentPassword
	}

	hash, err := v.hasher.Hash(ctx, next)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", ErrInternal, err)
	}
	if err := v.store.UpdatePasswordHash(ctx, p.UserID, hash); err != nil {
		return fmt.Errorf("%w: store password: %v", ErrInternal, err)
	}
	v.log.Info(ctx, "password changed", "user_id", p.UserID)
	return nil
}
