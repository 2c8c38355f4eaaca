package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	"github.com/astro-web3/edge-auth-gateway/pkg/tracer"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultKeyPrefix = "auth:blacklist:"

// RedisConfig controls how blacklisted tokens are keyed.
type RedisConfig struct {
	KeyPrefix string
	// HashKeys stores sha256(token) instead of the raw token.
	HashKeys bool
}

// RedisStore is the shared logout blacklist. A token is revoked while its
// key exists; the key TTL is the token's remaining lifetime.
type RedisStore struct {
	client *redis.Client
	cfg    RedisConfig
}

var _ authfilter.RevocationChecker = (*RedisStore)(nil)

func NewRedisClient(url string, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if poolSize > 0 {
		opt.PoolSize = poolSize
	}

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, cfg: cfg}
}

func (s *RedisStore) key(token string) string {
	if s.cfg.HashKeys {
		return s.cfg.KeyPrefix + hashToken(token)
	}
	return s.cfg.KeyPrefix + token
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, span := tracer.Start(ctx, "infra.revocation.redis.IsRevoked")
	defer span.End()

	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check redis blacklist: %w", err)
	}

	revoked := n > 0
	span.SetAttributes(attribute.Bool("token.revoked", revoked))
	return revoked, nil
}

// Revoke blacklists token for ttl. A non-positive ttl is rejected since the
// entry would never expire.
func (s *RedisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "infra.revocation.redis.Revoke")
	defer span.End()

	if ttl <= 0 {
		return ErrInvalidTTL
	}

	if err := s.client.Set(ctx, s.key(token), "1", ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set redis blacklist entry: %w", err)
	}

	return nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
