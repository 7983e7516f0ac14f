package supabasead

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

// Verifier resolves bearer tokens through Supabase Auth.
type Verifier struct{ c *supabase.Client }

var _ domain.IdentityVerifier = (*Verifier)(nil)

func NewVerifier(c *supabase.Client) *Verifier { return &Verifier{c: c} }

func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}
	start := time.Now()
	user, err := v.c.Auth.WithToken(token).GetUser()
	status := 200
	if err != nil {
		status = 401
	}
	observability.ObserveExternal("supabase", "auth_user", status, time.Since(start))
	if err != nil {
		// gotrue does not expose the status code; treat every failure as a rejected token
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return identity(user.ID.String(), user.Email, user.Role)
}

func identity(id, email, role string) (domain.Identity, error) {
	if id == "" || id == "00000000-0000-0000-0000-000000000000" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return domain.Identity{ID: id, Email: email, Role: role}, nil
}
