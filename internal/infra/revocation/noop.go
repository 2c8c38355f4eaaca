package revocation

import (
	"context"

	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
)

// Disabled never reports a token as revoked. Used when no blacklist backend
// is deployed.
type Disabled struct{}

var _ authfilter.RevocationChecker = Disabled{}

func (Disabled) IsRevoked(context.Context, string) (bool, error) {
	return false, nil
}
