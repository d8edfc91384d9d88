package auth

import (
	"net/http"
	"strings"
)

// Gate verifies access tokens and applies the role and ownership
// policies. It never touches the credential store.
type Gate struct {
	signer *signer
}

// NewGate builds a Gate sharing cfg's secret and clock with the Verifier.
func NewGate(cfg Config) (*Gate, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Gate{signer: newSigner(cfg)}, nil
}

const bearerPrefix = "Bearer "

// ExtractToken returns the token from an "Authorization: Bearer <token>"
// header. Anything else, including an empty token or extra whitespace,
// is ErrMissingToken.
func ExtractToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", ErrMissingToken
	}
	tok := h[len(bearerPrefix):]
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", ErrMissingToken
	}
	return tok, nil
}

// Verify checks the token signature and expiry and returns the principal
// it names. The result reflects the token, not the current database row.
func (g *Gate) Verify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	return g.signer.parse(token)
}

// RequireRole fails with ErrInsufficientRole unless p holds role.
func (g *Gate) RequireRole(p Principal, role Role) error {
	if p.Role != role {
		return ErrInsufficientRole
	}
	return nil
}

// RequireOwnershipOrAdmin fails with ErrInsufficientPermissions unless p
// is an admin or owns the resource. It must run before the resource is
// looked up so a refusal says nothing about whether ownerID exists.
func (g *Gate) RequireOwnershipOrAdmin(p Principal, ownerID int64) error {
	if p.IsAdmin() || p.Owns(ownerID) {
		return nil
	}
	return ErrInsufficientPermissions
}
