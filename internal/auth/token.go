package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Token is a signed access token together with its validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// signer issues and parses HS256 tokens. Both the Verifier and the Gate
// embed one built from the same Config.
type signer struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

func newSigner(cfg Config) *signer {
	s := &signer{secret: cfg.Secret, now: cfg.Now}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

func (s *signer) issue(p Principal) (Token, error) {
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(TokenLifetime)
	claims := Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("%w: sign token: %v", ErrInternal, err)
	}
	return Token{Value: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

func (s *signer) parse(raw string) (Principal, error) {
	claims := &Claims{}
	tok, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		// Expiry is only reported once the signature checked out.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, ErrInvalidToken
	}
	if !tok.Valid || claims.UserID <= 0 || !claims.Role.Valid() ||
		claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
