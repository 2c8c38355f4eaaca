package tracer

import (
	"context"
	"sync"

	"github.com/astro-web3/edge-auth-gateway/pkg/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	defaultTracer trace.Tracer
	initOnce      sync.Once
	errInit       error

	noopTracer = noop.NewTracerProvider().Tracer("noop")
)

// InitTracer sets up the package tracer once per process.
func InitTracer(serviceName string, cfg otel.Config) error {
	initOnce.Do(func() {
		cfg.ServiceName = serviceName
		t, err := otel.InitTracer(cfg)
		if err != nil {
			errInit = err
			return
		}

		defaultTracer = t
	})

	return errInit
}

// Start opens a span on the package tracer, falling back to a noop tracer
// before InitTracer has run (tests, tools).
func Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if defaultTracer == nil {
		return noopTracer.Start(ctx, spanName, opts...)
	}
	return defaultTracer.Start(ctx, spanName, opts...)
}
