package auth

import (
	"context"

	"opspanel.org/internal/token"
)

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, identity token.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &identity)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (token.Identity, bool) {
	if ctx == nil {
		return token.Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*token.Identity)
	if !ok || v == nil {
		return token.Identity{}, false
	}
	return *v, true
}
