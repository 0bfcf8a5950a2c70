package auth

import (
	"context"

	"github.com/odyssey-erp/memberdash/internal/shared"
)

// Provider answers "who is signed in" for a request context.
type Provider struct{}

// NewProvider constructs a Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Current reports the session status and identity carried by ctx.
func (p *Provider) Current(ctx context.Context) Current {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return Current{Status: StatusLoading}
	}
	id, ok := sess.Identity()
	if !ok || id.Token == "" {
		return Current{Status: StatusUnauthenticated}
	}
	return Current{Status: StatusAuthenticated, User: &id}
}

// Token returns the bearer token for ctx, or "" when signed out.
func (p *Provider) Token(ctx context.Context) string {
	cur := p.Current(ctx)
	if !cur.Authenticated() {
		return ""
	}
	return cur.User.Token
}
