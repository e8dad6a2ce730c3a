// Package auth provides bearer-token authentication for the gateway.
//
// # Tokens
//
// Callers authenticate with JWT bearer tokens issued by the external
// identity provider. The gateway only verifies tokens; it never handles
// credentials. Tokens are HS256-signed and validated against the
// configured jwt_secret:
//
//	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
//	identity, err := verifier.Verify(tokenString)
//
// The "sub" claim is required and becomes Identity.ID. The email, name,
// and picture claims are carried along when present.
//
// # Middleware
//
// RequireAuth and OptionalAuth are router-compatible middleware
// factories. RequireAuth rejects requests without a valid token with a
// 401 response carrying a WWW-Authenticate: Bearer header. OptionalAuth
// continues anonymously when the token is missing or invalid.
//
// Both attach the verified Identity to the request context, where
// handlers retrieve it:
//
//	identity := auth.IdentityOrAnonymous(r.Context())
//
// # Identity resolution order
//
// Handlers that scope data by user take the ID from the verified token,
// falling back to the anonymous identity only when authentication is
// disabled in configuration.
package auth
