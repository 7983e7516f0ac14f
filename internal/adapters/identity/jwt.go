package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"brokerage_site/internal/domain"
)

// JWTVerifier validates HS256 tokens locally with the project's JWT secret,
// avoiding a round trip to the auth service.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ domain.IdentityVerifier = (*JWTVerifier)(nil)

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return v.secret, nil })
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if c.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return domain.Identity{ID: c.Subject, Email: c.Email, Role: c.Role}, nil
}
