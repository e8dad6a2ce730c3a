// ABOUTME: Identity type and context propagation for authenticated requests
// ABOUTME: Provides WithIdentity/FromContext for handlers downstream of the middleware

package auth

import (
	"context"
)

// AnonymousID is the user ID assigned to unauthenticated callers when
// authentication is optional.
const AnonymousID = "anonymous"

// Identity holds the authenticated caller information extracted from a
// bearer token. ID is the provider's subject; the remaining fields are
// optional claims.
type Identity struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// identityKey is the key type for storing an Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the identity attached.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext retrieves the identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	identity, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// IdentityOrAnonymous retrieves the identity from the context, falling back
// to the anonymous identity when none is attached.
func IdentityOrAnonymous(ctx context.Context) *Identity {
	if identity := FromContext(ctx); identity != nil {
		return identity
	}
	return &Identity{ID: AnonymousID}
}
