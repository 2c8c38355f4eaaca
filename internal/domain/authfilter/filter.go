package authfilter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/astro-web3/edge-auth-gateway/pkg/logger"
)

const (
	HeaderAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
	rolesSeparator      = ","
)

// HeaderKeys names the identity headers injected into forwarded requests.
type HeaderKeys struct {
	UserID    string
	UserRoles string
}

// DefaultHeaderKeys returns X-User-Id / X-User-Roles.
func DefaultHeaderKeys() HeaderKeys {
	return HeaderKeys{
		UserID:    "X-User-Id",
		UserRoles: "X-User-Roles",
	}
}

// Filter decides, per request, whether to forward or reject.
type Filter interface {
	Evaluate(ctx context.Context, req *Request) Decision
}

type Option func(*filter)

// WithHeaderKeys overrides the injected header names. Empty fields keep the defaults.
func WithHeaderKeys(keys HeaderKeys) Option {
	return func(f *filter) {
		if keys.UserID != "" {
			f.headerKeys.UserID = keys.UserID
		}
		if keys.UserRoles != "" {
			f.headerKeys.UserRoles = keys.UserRoles
		}
	}
}

type filter struct {
	whitelist  Whitelist
	verifier   TokenVerifier
	revocation RevocationChecker
	headerKeys HeaderKeys
}

func NewFilter(whitelist Whitelist, verifier TokenVerifier, revocation RevocationChecker, opts ...Option) (Filter, error) {
	if verifier == nil {
		return nil, ErrNilVerifier
	}
	if revocation == nil {
		return nil, ErrNilRevocationChecker
	}

	f := &filter{
		whitelist:  whitelist,
		verifier:   verifier,
		revocation: revocation,
		headerKeys: DefaultHeaderKeys(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *filter) Evaluate(ctx context.Context, req *Request) Decision {
	logger.DebugContext(ctx, "auth filter incoming request",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
	)

	if f.whitelist.Matches(req.Path) {
		logger.DebugContext(ctx, "path whitelisted, skipping token validation", slog.String("path", req.Path))
		return Forward(req).because(ReasonWhitelisted)
	}

	token, ok := bearerToken(req.Header)
	if !ok {
		logger.DebugContext(ctx, "no bearer token, forwarding as anonymous", slog.String("path", req.Path))
		return Forward(req).because(ReasonAnonymous)
	}

	claims, reason, err := f.authenticate(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "token validation fault, rejecting",
			slog.String("path", req.Path),
			slog.String("token", tokenPrefix(token)),
			slog.String("error", err.Error()),
		)
		return Reject(http.StatusUnauthorized).because(ReasonFault)
	}
	if claims == nil {
		logger.DebugContext(ctx, "token rejected",
			slog.String("path", req.Path),
			slog.String("reason", string(reason)),
		)
		return Reject(http.StatusUnauthorized).because(reason)
	}

	logger.DebugContext(ctx, "token validated",
		slog.String("user_id", claims.UserID),
		slog.Any("roles", claims.Roles),
	)

	derived := req.Clone()
	derived.Header.Set(f.headerKeys.UserID, claims.UserID)
	derived.Header.Set(f.headerKeys.UserRoles, strings.Join(claims.Roles, rolesSeparator))

	return Forward(derived).because(ReasonAuthenticated)
}

// authenticate runs validation, revocation, type gate and claim extraction in
// order. It returns claims on success, or a rejection reason. A non-nil error
// is a collaborator fault, panics included.
func (f *filter) authenticate(ctx context.Context, token string) (claims *TokenClaims, reason Reason, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims = nil
			reason = ReasonFault
			err = fmt.Errorf("%w: %v", ErrCollaboratorPanic, r)
		}
	}()

	valid, err := f.verifier.Validate(ctx, token)
	if err != nil {
		return nil, ReasonFault, fmt.Errorf("validate token: %w", err)
	}
	if !valid {
		return nil, ReasonInvalidToken, nil
	}

	revoked, err := f.revocation.IsRevoked(ctx, token)
	if err != nil {
		return nil, ReasonFault, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ReasonRevoked, nil
	}

	tokenType, err := f.verifier.TokenType(ctx, token)
	if err != nil {
		return nil, ReasonFault, fmt.Errorf("read token type: %w", err)
	}
	if TokenType(tokenType) != TokenTypeAccess {
		return nil, ReasonNotAccessToken, nil
	}

	userID, err := f.verifier.UserID(ctx, token)
	if err != nil {
		return nil, ReasonFault, fmt.Errorf("read user id: %w", err)
	}

	roles, err := f.verifier.Roles(ctx, token)
	if err != nil {
		return nil, ReasonFault, fmt.Errorf("read roles: %w", err)
	}

	return &TokenClaims{
		UserID:    userID,
		Roles:     roles,
		TokenType: TokenType(tokenType),
	}, ReasonAuthenticated, nil
}

// bearerToken returns the token after the case-sensitive "Bearer " scheme.
// A header that is missing, blank, uses another scheme, or carries no token
// text is reported as absent.
func bearerToken(header http.Header) (string, bool) {
	value := header.Get(HeaderAuthorization)
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	token, found := strings.CutPrefix(value, bearerPrefix)
	if !found || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

const tokenPrefixLength = 8

func tokenPrefix(token string) string {
	if len(token) > tokenPrefixLength {
		return token[:tokenPrefixLength] + "..."
	}
	return "***"
}
