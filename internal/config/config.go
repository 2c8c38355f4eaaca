package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "EDGE_AUTH_GATEWAY"

// PlaceholderSecret is the secret shipped in config/config.yaml. It is refused
// in release mode.
const PlaceholderSecret = "change-me"

type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		Mode         string        `mapstructure:"mode"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Upstream struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"upstream"`

	Redis struct {
		URL      string `mapstructure:"url"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Auth struct {
		JWT struct {
			Secret                      string        `mapstructure:"secret"`
			Issuer                      string        `mapstructure:"issuer"`
			AccessTokenValiditySeconds  int64         `mapstructure:"access_token_validity_seconds"`
			RefreshTokenValiditySeconds int64         `mapstructure:"refresh_token_validity_seconds"`
			UserIDClaim                 string        `mapstructure:"user_id_claim"`
			RolesClaim                  string        `mapstructure:"roles_claim"`
			TokenTypeClaim              string        `mapstructure:"token_type_claim"`
			Leeway                      time.Duration `mapstructure:"leeway"`
		} `mapstructure:"jwt"`
		Whitelist  []string `mapstructure:"whitelist"`
		HeaderKeys struct {
			UserID    string `mapstructure:"user_id"`
			UserRoles string `mapstructure:"user_roles"`
		} `mapstructure:"header_keys"`
		Revocation struct {
			// Backend is one of "redis", "remote" or "none".
			Backend   string `mapstructure:"backend"`
			KeyPrefix string `mapstructure:"key_prefix"`
			HashKeys  bool   `mapstructure:"hash_keys"`
			Remote    struct {
				URL          string        `mapstructure:"url"`
				CheckPath    string        `mapstructure:"check_path"`
				ServiceToken string        `mapstructure:"service_token"`
				Timeout      time.Duration `mapstructure:"timeout"`
			} `mapstructure:"remote"`
			Breaker struct {
				Enabled             bool          `mapstructure:"enabled"`
				ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
				OpenTimeout         time.Duration `mapstructure:"open_timeout"`
			} `mapstructure:"breaker"`
		} `mapstructure:"revocation"`
		CheckPath string `mapstructure:"check_path"`
	} `mapstructure:"auth"`

	Observability struct {
		MetricsEnabled     bool    `mapstructure:"metrics_enabled"`
		TraceEnabled       bool    `mapstructure:"trace_enabled"`
		TracingEndpointURL string  `mapstructure:"tracing_endpoint_url"`
		SampleRatio        float64 `mapstructure:"sample_ratio"`
		LogLevel           string  `mapstructure:"log_level"`
		Format             string  `mapstructure:"log_format"`
		LogSource          bool    `mapstructure:"log_source"`
	} `mapstructure:"observability"`
}

var (
	ErrMissingSecret     = errors.New("auth.jwt.secret is required")
	ErrPlaceholderSecret = errors.New("auth.jwt.secret must not be the shipped placeholder in release mode")
	ErrMissingUpstream   = errors.New("upstream.url is required")
	ErrInvalidBackend    = errors.New("auth.revocation.backend must be redis, remote or none")
	ErrMissingRedisURL   = errors.New("redis.url is required for the redis revocation backend")
	ErrMissingRemote     = errors.New("auth.revocation.remote.url is required for the remote revocation backend")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Keys without a sensible default are still registered so that
	// environment variables alone can supply them.
	v.SetDefault("upstream.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.revocation.remote.url", "")
	v.SetDefault("auth.revocation.remote.service_token", "")
	v.SetDefault("observability.tracing_endpoint_url", "")

	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.jwt.user_id_claim", "sub")
	v.SetDefault("auth.jwt.roles_claim", "roles")
	v.SetDefault("auth.jwt.token_type_claim", "tokenType")
	v.SetDefault("auth.jwt.access_token_validity_seconds", 900)
	v.SetDefault("auth.jwt.refresh_token_validity_seconds", 1209600)
	v.SetDefault("auth.whitelist", []string{"/v1/user/auth/refresh", "/v1/user/auth/logout"})
	v.SetDefault("auth.header_keys.user_id", "X-User-Id")
	v.SetDefault("auth.header_keys.user_roles", "X-User-Roles")
	v.SetDefault("auth.revocation.backend", "redis")
	v.SetDefault("auth.revocation.key_prefix", "auth:blacklist:")
	v.SetDefault("auth.revocation.remote.timeout", 2*time.Second)
	v.SetDefault("auth.revocation.breaker.enabled", true)
	v.SetDefault("auth.revocation.breaker.consecutive_failures", 5)
	v.SetDefault("auth.revocation.breaker.open_timeout", 10*time.Second)
	v.SetDefault("auth.check_path", "/auth/check")

	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.sample_ratio", 1.0)
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
}

// Load reads config.yaml from the given directories (./config and . when
// none are given), merges config.<APP_ENV>.yaml when present and applies
// EDGE_AUTH_GATEWAY_* environment overrides.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			slog.Info("No environment-specific config (optional)", slog.String("env", env))
		} else {
			slog.Info("Environment-specific config loaded", slog.String("env", env))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Auth.JWT.Secret == "" {
		return ErrMissingSecret
	}
	if c.Server.Mode == "release" && c.Auth.JWT.Secret == PlaceholderSecret {
		return ErrPlaceholderSecret
	}
	if c.Upstream.URL == "" {
		return ErrMissingUpstream
	}

	switch c.Auth.Revocation.Backend {
	case "redis":
		if c.Redis.URL == "" {
			return ErrMissingRedisURL
		}
	case "remote":
		if c.Auth.Revocation.Remote.URL == "" {
			return ErrMissingRemote
		}
	case "none":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Auth.Revocation.Backend)
	}

	return nil
}
