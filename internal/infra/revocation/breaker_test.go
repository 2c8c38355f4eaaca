package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(ctx context.Context, token string) (bool, error)

func (f checkerFunc) IsRevoked(ctx context.Context, token string) (bool, error) {
	return f(ctx, token)
}

func TestBreakerChecker_PassesThrough(t *testing.T) {
	b := NewBreakerChecker(checkerFunc(func(_ context.Context, token string) (bool, error) {
		return token == "revoked", nil
	}), BreakerConfig{})

	revoked, err := b.IsRevoked(context.Background(), "revoked")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsRevoked(context.Background(), "fine")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerChecker_OpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("redis down")
	calls := 0
	var states []string

	b := NewBreakerChecker(checkerFunc(func(context.Context, string) (bool, error) {
		calls++
		return false, boom
	}), BreakerConfig{
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Hour,
		OnStateChange: func(_, state string) {
			states = append(states, state)
		},
	})

	for i := 0; i < 2; i++ {
		_, err := b.IsRevoked(context.Background(), "t")
		assert.ErrorIs(t, err, boom)
	}

	_, err := b.IsRevoked(context.Background(), "t")
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, calls, "open breaker must not call the backend")
	assert.Equal(t, "open", b.State())
	assert.Equal(t, []string{"open"}, states)
}

func TestDisabled_NeverRevoked(t *testing.T) {
	revoked, err := Disabled{}.IsRevoked(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBreakerChecker_CanceledCallersDoNotTrip(t *testing.T) {
	b := NewBreakerChecker(checkerFunc(func(ctx context.Context, _ string) (bool, error) {
		return false, ctx.Err()
	}), BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_, err := b.IsRevoked(ctx, "t")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())

	revoked, err := b.IsRevoked(context.Background(), "t")
	require.NoError(t, err)
	assert.False(t, revoked)
}
