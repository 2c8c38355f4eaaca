package authfilter_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	appauthfilter "github.com/astro-web3/edge-auth-gateway/internal/app/authfilter"
	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
)

type filterFunc func(ctx context.Context, req *authfilter.Request) authfilter.Decision

func (f filterFunc) Evaluate(ctx context.Context, req *authfilter.Request) authfilter.Decision {
	return f(ctx, req)
}

type observation struct {
	decision string
	reason   string
}

type mockRecorder struct {
	observations []observation
}

func (m *mockRecorder) ObserveDecision(decision, reason string, _ time.Duration) {
	m.observations = append(m.observations, observation{decision: decision, reason: reason})
}

func TestService_Evaluate_RecordsDecision(t *testing.T) {
	verifier := &stubVerifier{tokenType: "refresh"}
	filter, err := authfilter.NewFilter(authfilter.NewWhitelist(), verifier, stubRevocation{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recorder := &mockRecorder{}
	svc := appauthfilter.NewService(filter, recorder)

	h := http.Header{}
	h.Set("Authorization", "Bearer refresh-token")
	decision := svc.Evaluate(context.Background(), authfilter.NewRequest(http.MethodGet, "/v1/orders", h))

	if decision.IsForward() {
		t.Fatal("expected reject for refresh token")
	}
	if len(recorder.observations) != 1 {
		t.Fatalf("expected one observation, got %d", len(recorder.observations))
	}
	if got := recorder.observations[0]; got.decision != "reject" || got.reason != "not_access_token" {
		t.Errorf("unexpected observation %+v", got)
	}
}

func TestService_Evaluate_PassesDecisionThrough(t *testing.T) {
	req := authfilter.NewRequest(http.MethodGet, "/v1/orders", nil)
	svc := appauthfilter.NewService(filterFunc(func(_ context.Context, r *authfilter.Request) authfilter.Decision {
		return authfilter.Forward(r)
	}), nil)

	decision := svc.Evaluate(context.Background(), req)

	if !decision.IsForward() || decision.Request() != req {
		t.Error("expected the filter decision to be returned unchanged")
	}
}

type stubVerifier struct {
	tokenType string
}

func (s *stubVerifier) Validate(context.Context, string) (bool, error) { return true, nil }

func (s *stubVerifier) TokenType(context.Context, string) (string, error) { return s.tokenType, nil }

func (s *stubVerifier) UserID(context.Context, string) (string, error) { return "u-1", nil }

func (s *stubVerifier) Roles(context.Context, string) ([]string, error) { return []string{"USER"}, nil }

type stubRevocation struct{}

func (stubRevocation) IsRevoked(context.Context, string) (bool, error) { return false, nil }
