package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	"github.com/astro-web3/edge-auth-gateway/pkg/logger"
	"github.com/astro-web3/edge-auth-gateway/pkg/tracer"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEmptySecret  = errors.New("jwt secret is empty")
	ErrMissingClaim = errors.New("jwt claim missing")
	ErrInvalidClaim = errors.New("jwt claim has unexpected type")
)

// Config mirrors the auth.jwt section of the gateway configuration.
type Config struct {
	Secret         string
	Issuer         string
	UserIDClaim    string
	RolesClaim     string
	TokenTypeClaim string
	Leeway         time.Duration
}

func (c Config) withDefaults() Config {
	if c.UserIDClaim == "" {
		c.UserIDClaim = "sub"
	}
	if c.RolesClaim == "" {
		c.RolesClaim = "roles"
	}
	if c.TokenTypeClaim == "" {
		c.TokenTypeClaim = "tokenType"
	}
	return c
}

// Verifier checks HMAC-signed tokens issued by the user service and reads
// identity claims from them.
type Verifier struct {
	cfg    Config
	key    []byte
	parser *jwt.Parser
}

var _ authfilter.TokenVerifier = (*Verifier)(nil)

func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	cfg = cfg.withDefaults()

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{
		cfg:    cfg,
		key:    []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

func (v *Verifier) keyFunc(_ *jwt.Token) (any, error) {
	return v.key, nil
}

func (v *Verifier) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyFunc); err != nil {
		return nil, err
	}
	return claims, nil
}

// Validate reports whether token has a good signature, a known algorithm and
// has not expired. Every parse failure is an invalid token, never an error.
func (v *Verifier) Validate(ctx context.Context, token string) (bool, error) {
	ctx, span := tracer.Start(ctx, "infra.jwt.Validate")
	defer span.End()

	if _, err := v.parse(token); err != nil {
		kind := classify(err)
		span.SetAttributes(
			attribute.Bool("jwt.valid", false),
			attribute.String("jwt.failure", kind),
		)
		logger.DebugContext(ctx, "jwt validation failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return false, nil
	}

	span.SetAttributes(attribute.Bool("jwt.valid", true))
	return true, nil
}

func (v *Verifier) TokenType(_ context.Context, token string) (string, error) {
	claims, err := v.parse(token)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	return stringClaim(claims, v.cfg.TokenTypeClaim)
}

func (v *Verifier) UserID(_ context.Context, token string) (string, error) {
	claims, err := v.parse(token)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	return stringClaim(claims, v.cfg.UserIDClaim)
}

// Roles returns the roles claim in token order. A token without roles has none.
func (v *Verifier) Roles(_ context.Context, token string) ([]string, error) {
	claims, err := v.parse(token)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	raw, ok := claims[v.cfg.RolesClaim]
	if !ok || raw == nil {
		return []string{}, nil
	}

	switch values := raw.(type) {
	case []any:
		roles := make([]string, 0, len(values))
		for _, r := range values {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidClaim, v.cfg.RolesClaim)
			}
			roles = append(roles, s)
		}
		return roles, nil
	case string:
		return []string{values}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidClaim, v.cfg.RolesClaim)
	}
}

func stringClaim(claims jwt.MapClaims, name string) (string, error) {
	raw, ok := claims[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingClaim, name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidClaim, name)
	}
	return s, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not_yet_valid"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	default:
		return "invalid"
	}
}
