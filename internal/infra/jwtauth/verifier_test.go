package jwtauth_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/astro-web3/edge-auth-gateway/internal/infra/jwtauth"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func accessClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":       "u-1",
		"roles":     []string{"USER", "ADVISOR"},
		"tokenType": "access",
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(15 * time.Minute).Unix(),
	}
}

func newVerifier(t *testing.T, cfg jwtauth.Config) *jwtauth.Verifier {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	v, err := jwtauth.NewVerifier(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	if _, err := jwtauth.NewVerifier(jwtauth.Config{}); !errors.Is(err, jwtauth.ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestVerifier_ValidAccessToken(t *testing.T) {
	v := newVerifier(t, jwtauth.Config{})
	ctx := context.Background()
	token := sign(t, testSecret, accessClaims())

	valid, err := v.Validate(ctx, token)
	if err != nil || !valid {
		t.Fatalf("expected valid token, got valid=%v err=%v", valid, err)
	}

	tokenType, err := v.TokenType(ctx, token)
	if err != nil || tokenType != "access" {
		t.Errorf("TokenType() = %q, %v", tokenType, err)
	}

	userID, err := v.UserID(ctx, token)
	if err != nil || userID != "u-1" {
		t.Errorf("UserID() = %q, %v", userID, err)
	}

	roles, err := v.Roles(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(roles, []string{"USER", "ADVISOR"}) {
		t.Errorf("Roles() = %v, want [USER ADVISOR]", roles)
	}
}

func TestVerifier_InvalidTokens(t *testing.T) {
	v := newVerifier(t, jwtauth.Config{Issuer: "user-service"})

	expired := accessClaims()
	expired["iss"] = "user-service"
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noExp := accessClaims()
	noExp["iss"] = "user-service"
	delete(noExp, "exp")

	wrongIssuer := accessClaims()
	wrongIssuer["iss"] = "someone-else"

	good := accessClaims()
	good["iss"] = "user-service"

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, good).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build none token: %v", err)
	}

	tests := map[string]string{
		"expired":        sign(t, testSecret, expired),
		"missing exp":    sign(t, testSecret, noExp),
		"wrong issuer":   sign(t, testSecret, wrongIssuer),
		"bad signature":  sign(t, "another-secret-key-at-least-32-bytes", good),
		"none algorithm": noneToken,
		"malformed":      "not-a-jwt",
		"garbage parts":  "a.b.c",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			valid, err := v.Validate(context.Background(), token)
			if err != nil {
				t.Fatalf("invalid tokens must not be reported as errors: %v", err)
			}
			if valid {
				t.Error("expected token to be invalid")
			}
		})
	}
}

func TestVerifier_LeewayAcceptsClockSkew(t *testing.T) {
	v := newVerifier(t, jwtauth.Config{Leeway: time.Minute})

	claims := accessClaims()
	claims["exp"] = time.Now().Add(-10 * time.Second).Unix()

	valid, err := v.Validate(context.Background(), sign(t, testSecret, claims))
	if err != nil || !valid {
		t.Errorf("expected token within leeway to be valid, got valid=%v err=%v", valid, err)
	}
}

func TestVerifier_CustomClaimNames(t *testing.T) {
	v := newVerifier(t, jwtauth.Config{
		UserIDClaim:    "userId",
		RolesClaim:     "authorities",
		TokenTypeClaim: "typ",
	})
	ctx := context.Background()

	token := sign(t, testSecret, jwt.MapClaims{
		"userId":      "42",
		"authorities": []string{"USER"},
		"typ":         "refresh",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	if userID, _ := v.UserID(ctx, token); userID != "42" {
		t.Errorf("expected user id 42, got %q", userID)
	}
	if tokenType, _ := v.TokenType(ctx, token); tokenType != "refresh" {
		t.Errorf("expected refresh type, got %q", tokenType)
	}
	if roles, _ := v.Roles(ctx, token); !reflect.DeepEqual(roles, []string{"USER"}) {
		t.Errorf("expected [USER], got %v", roles)
	}
}

func TestVerifier_ClaimErrors(t *testing.T) {
	v := newVerifier(t, jwtauth.Config{})
	ctx := context.Background()

	claims := accessClaims()
	delete(claims, "sub")
	claims["tokenType"] = 7
	claims["roles"] = []any{"USER", 3}
	token := sign(t, testSecret, claims)

	if _, err := v.UserID(ctx, token); !errors.Is(err, jwtauth.ErrMissingClaim) {
		t.Errorf("expected ErrMissingClaim, got %v", err)
	}
	if _, err := v.TokenType(ctx, token); !errors.Is(err, jwtauth.ErrInvalidClaim) {
		t.Errorf("expected ErrInvalidClaim, got %v", err)
	}
	if _, err := v.Roles(ctx, token); !errors.Is(err, jwtauth.ErrInvalidClaim) {
		t.Errorf("expected ErrInvalidClaim, got %v", err)
	}
}

func TestVerifier_MissingRolesIsEmpty(t *testing.T) {
	v := newVerifier(t, jwtauth.Config{})

	claims := accessClaims()
	delete(claims, "roles")

	roles, err := v.Roles(context.Background(), sign(t, testSecret, claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("expected no roles, got %v", roles)
	}
}
