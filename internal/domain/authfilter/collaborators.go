package authfilter

import "context"

// TokenVerifier checks signature, expiry and structure of a bearer token and
// reads its claims. The claim accessors are only called after Validate
// reported the token as valid.
//
// Validate returns (false, nil) for a token that is simply not acceptable
// (expired, malformed, bad signature). A non-nil error means the verifier
// itself failed.
type TokenVerifier interface {
	Validate(ctx context.Context, token string) (bool, error)
	TokenType(ctx context.Context, token string) (string, error)
	UserID(ctx context.Context, token string) (string, error)
	Roles(ctx context.Context, token string) ([]string, error)
}

// RevocationChecker reports whether a structurally valid token was
// explicitly invalidated, e.g. by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}
