package http

import (
	"context"
	"net/http"
	"time"

	"github.com/astro-web3/edge-auth-gateway/pkg/tracer"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTimeout = 5 * time.Second

// Config describes an outbound client. RetryCount is zero unless the caller
// asks for retries.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Headers    map[string]string
}

// Client is a traced resty client bound to one upstream service.
type Client struct {
	resty *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json")

	for k, v := range cfg.Headers {
		rc.SetHeader(k, v)
	}

	return &Client{resty: rc}
}

type RequestOption func(*resty.Request)

func WithAuthToken(token string) RequestOption {
	return func(r *resty.Request) {
		r.SetAuthToken(token)
	}
}

func WithQueryParam(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetQueryParam(key, value)
	}
}

func WithBody(body any) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
}

func WithResult(result any) RequestOption {
	return func(r *resty.Request) {
		if result != nil {
			r.SetResult(result)
		}
	}
}

func (c *Client) Request(ctx context.Context, method, path string, opts ...RequestOption) (*resty.Response, error) {
	ctx, span := startClientSpan(ctx, method, path)
	defer span.End()

	request := c.resty.R().SetContext(ctx)
	for _, opt := range opts {
		opt(request)
	}

	injectTracingHeaders(ctx, request)

	resp, err := request.Execute(method, path)
	recordSpan(span, resp, err)
	return resp, err
}

func (c *Client) Post(ctx context.Context, path string, opts ...RequestOption) (*resty.Response, error) {
	return c.Request(ctx, http.MethodPost, path, opts...)
}

func startClientSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, "http.client."+method, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
}

func recordSpan(span trace.Span, resp *resty.Response, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if resp == nil {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Status())
		return
	}
	span.SetStatus(codes.Ok, "")
}
