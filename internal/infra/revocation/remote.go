package revocation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	httpclient "github.com/astro-web3/edge-auth-gateway/pkg/http"
)

// DefaultCheckPath is the user service endpoint answering blacklist lookups.
const DefaultCheckPath = "/internal/v1/auth/tokens/revocation-check"

type checkRequest struct {
	Token string `json:"token"`
}

type checkResponse struct {
	Revoked bool `json:"revoked"`
}

type RemoteConfig struct {
	CheckPath string
	// ServiceToken authenticates the gateway to the user service. Sent as a
	// bearer token when set.
	ServiceToken string
}

// RemoteChecker asks the user service whether a token was logged out.
// Any non-200 answer is a fault, not a "not revoked".
type RemoteChecker struct {
	client       *httpclient.Client
	checkPath    string
	serviceToken string
}

var _ authfilter.RevocationChecker = (*RemoteChecker)(nil)

func NewRemoteChecker(client *httpclient.Client, cfg RemoteConfig) *RemoteChecker {
	if cfg.CheckPath == "" {
		cfg.CheckPath = DefaultCheckPath
	}
	return &RemoteChecker{
		client:       client,
		checkPath:    cfg.CheckPath,
		serviceToken: cfg.ServiceToken,
	}
}

func (c *RemoteChecker) IsRevoked(ctx context.Context, token string) (bool, error) {
	var out checkResponse
	opts := []httpclient.RequestOption{
		httpclient.WithBody(checkRequest{Token: token}),
		httpclient.WithResult(&out),
	}
	if c.serviceToken != "" {
		opts = append(opts, httpclient.WithAuthToken(c.serviceToken))
	}

	resp, err := c.client.Post(ctx, c.checkPath, opts...)
	if err != nil {
		return false, fmt.Errorf("revocation check request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}

	return out.Revoked, nil
}
