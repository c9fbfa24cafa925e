package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func TestGuardOpensAfterFailures(t *testing.T) {
	cfg := DefaultConfig("test", time.Second)
	cfg.MinRequests = 3
	cfg.FailureRatio = 1
	g := New(cfg, nil)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := g.Do(context.Background(), func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
	}

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.False(t, called)
	require.Equal(t, "open", g.State())
}

func TestCallAppliesTimeout(t *testing.T) {
	g := New(DefaultConfig("slow", 20*time.Millisecond), nil)
	_, err := Call(context.Background(), g, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallNilGuard(t *testing.T) {
	v, err := Call(context.Background(), nil, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}
