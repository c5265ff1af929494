package auth

import (
	"context"

	"github.com/nikolayk812/ordermgr/internal/domain"
)

type contextKey string

const identityContextKey contextKey = "github.com/nikolayk812/ordermgr/internal/auth/identity"

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the caller stored by RequireAuth. The zero
// Identity is not authenticated.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(domain.Identity)
	return identity, ok
}
