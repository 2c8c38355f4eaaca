package authfilter

import (
	"context"
	"time"

	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	"github.com/astro-web3/edge-auth-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

// Recorder receives one observation per evaluated request.
type Recorder interface {
	ObserveDecision(decision, reason string, d time.Duration)
}

type Service interface {
	Evaluate(ctx context.Context, req *authfilter.Request) authfilter.Decision
}

type service struct {
	filter   authfilter.Filter
	recorder Recorder
}

func NewService(filter authfilter.Filter, recorder Recorder) Service {
	return &service{
		filter:   filter,
		recorder: recorder,
	}
}

func (s *service) Evaluate(ctx context.Context, req *authfilter.Request) authfilter.Decision {
	ctx, span := tracer.Start(ctx, "app.authfilter.Evaluate")
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
	)

	start := time.Now()
	decision := s.filter.Evaluate(ctx, req)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("authfilter.decision", decision.Outcome()),
		attribute.String("authfilter.reason", string(decision.Reason())),
	)
	if !decision.IsForward() {
		span.SetAttributes(attribute.Int("authfilter.status", decision.Status()))
	}

	if s.recorder != nil {
		s.recorder.ObserveDecision(decision.Outcome(), string(decision.Reason()), elapsed)
	}

	return decision
}
