package identity

import (
	"context"

	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

// Principal is the caller as asserted by the identity provider. It is trusted
// verbatim.
type Principal struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Tier   tier.Tier `json:"tier"`
}

type contextKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}
