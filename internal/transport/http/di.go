package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	appauthfilter "github.com/astro-web3/edge-auth-gateway/internal/app/authfilter"
	"github.com/astro-web3/edge-auth-gateway/internal/config"
	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	"github.com/astro-web3/edge-auth-gateway/internal/infra/jwtauth"
	"github.com/astro-web3/edge-auth-gateway/internal/infra/metrics"
	"github.com/astro-web3/edge-auth-gateway/internal/infra/revocation"
	httpclient "github.com/astro-web3/edge-auth-gateway/pkg/http"
	"github.com/astro-web3/edge-auth-gateway/pkg/logger"
	"github.com/astro-web3/edge-auth-gateway/pkg/otel"
	"github.com/astro-web3/edge-auth-gateway/pkg/tracer"
)

type Server struct {
	httpServer *http.Server
	closers    []io.Closer
}

const (
	idleTimeoutMultiplier = 2
	serviceName           = "edge-auth-gateway"
	metricsNamespace      = "gateway"
)

func NewServer(cfg *config.Config) (*Server, error) {
	logger.Init(logger.Options{
		Level:     cfg.Observability.LogLevel,
		Format:    cfg.Observability.Format,
		AddSource: cfg.Observability.LogSource,
	})

	otelCfg := otel.DefaultConfig(serviceName)
	otelCfg.EndpointURL = cfg.Observability.TracingEndpointURL
	otelCfg.Enabled = cfg.Observability.TraceEnabled
	otelCfg.SampleRatio = cfg.Observability.SampleRatio
	if err := tracer.InitTracer(serviceName, otelCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Observability.MetricsEnabled {
		m = metrics.New(metricsNamespace)
	}

	verifier, err := jwtauth.NewVerifier(jwtauth.Config{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		UserIDClaim:    cfg.Auth.JWT.UserIDClaim,
		RolesClaim:     cfg.Auth.JWT.RolesClaim,
		TokenTypeClaim: cfg.Auth.JWT.TokenTypeClaim,
		Leeway:         cfg.Auth.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	server := &Server{}

	checker, err := server.newRevocationChecker(cfg, m)
	if err != nil {
		server.closeAll()
		return nil, err
	}

	headerKeys := authfilter.HeaderKeys{
		UserID:    cfg.Auth.HeaderKeys.UserID,
		UserRoles: cfg.Auth.HeaderKeys.UserRoles,
	}
	filter, err := authfilter.NewFilter(
		authfilter.NewWhitelist(cfg.Auth.Whitelist...),
		verifier,
		checker,
		authfilter.WithHeaderKeys(headerKeys),
	)
	if err != nil {
		server.closeAll()
		return nil, fmt.Errorf("failed to create auth filter: %w", err)
	}

	var recorder appauthfilter.Recorder
	if m != nil {
		recorder = m
	}
	appService := appauthfilter.NewService(filter, recorder)

	upstream, err := NewUpstreamProxy(cfg.Upstream.URL)
	if err != nil {
		server.closeAll()
		return nil, err
	}

	opts := RouterOptions{
		Mode:         cfg.Server.Mode,
		TraceEnabled: cfg.Observability.TraceEnabled,
		CheckPath:    cfg.Auth.CheckPath,
	}
	if m != nil {
		opts.MetricsHandler = m.Handler()
	}

	handler := NewHandler(appService, headerKeys)
	router := NewRouter(handler, upstream, opts)

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * idleTimeoutMultiplier,
	}

	return server, nil
}

func (s *Server) newRevocationChecker(cfg *config.Config, m *metrics.Metrics) (authfilter.RevocationChecker, error) {
	var checker authfilter.RevocationChecker

	switch cfg.Auth.Revocation.Backend {
	case "redis":
		client, err := revocation.NewRedisClient(cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		s.closers = append(s.closers, client)
		checker = revocation.NewRedisStore(client, revocation.RedisConfig{
			KeyPrefix: cfg.Auth.Revocation.KeyPrefix,
			HashKeys:  cfg.Auth.Revocation.HashKeys,
		})
	case "remote":
		client := httpclient.New(httpclient.Config{
			BaseURL: cfg.Auth.Revocation.Remote.URL,
			Timeout: cfg.Auth.Revocation.Remote.Timeout,
		})
		checker = revocation.NewRemoteChecker(client, revocation.RemoteConfig{
			CheckPath:    cfg.Auth.Revocation.Remote.CheckPath,
			ServiceToken: cfg.Auth.Revocation.Remote.ServiceToken,
		})
	case "none":
		logger.WarnContext(context.Background(), "token revocation checks are disabled")
		return revocation.Disabled{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", revocation.ErrUnknownBackend, cfg.Auth.Revocation.Backend)
	}

	if !cfg.Auth.Revocation.Breaker.Enabled {
		return checker, nil
	}

	breakerCfg := revocation.BreakerConfig{
		Name:                cfg.Auth.Revocation.Backend,
		ConsecutiveFailures: cfg.Auth.Revocation.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Auth.Revocation.Breaker.OpenTimeout,
	}
	if m != nil {
		breakerCfg.OnStateChange = m.SetBreakerState
	}
	return revocation.NewBreakerChecker(checker, breakerCfg), nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeAll())
}

func (s *Server) closeAll() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.ErrorContext(context.Background(), "failed to close resource", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
