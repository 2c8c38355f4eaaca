package revocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/astro-web3/edge-auth-gateway/internal/domain/authfilter"
	"github.com/astro-web3/edge-auth-gateway/pkg/logger"
	"github.com/sony/gobreaker"
)

// BreakerConfig trips the breaker after ConsecutiveFailures failed lookups and
// probes again after OpenTimeout.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
	// OnStateChange is called with the new state name ("closed", "half-open", "open").
	OnStateChange func(name, state string)
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Name == "" {
		c.Name = "revocation"
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 10 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// BreakerChecker fails lookups fast while the backing store is down. A
// failed or short-circuited lookup is still a fault; it is never turned into
// "not revoked".
type BreakerChecker struct {
	next authfilter.RevocationChecker
	cb   *gobreaker.CircuitBreaker
}

var _ authfilter.RevocationChecker = (*BreakerChecker)(nil)

func NewBreakerChecker(next authfilter.RevocationChecker, cfg BreakerConfig) *BreakerChecker {
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A caller that went away says nothing about the backend's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WarnContext(context.Background(), "revocation breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, to.String())
			}
		},
	}

	return &BreakerChecker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerChecker) IsRevoked(ctx context.Context, token string) (bool, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.IsRevoked(ctx, token)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
		}
		return false, err
	}

	revoked, _ := result.(bool)
	return revoked, nil
}

// State returns the breaker state name.
func (b *BreakerChecker) State() string {
	return b.cb.State().String()
}
