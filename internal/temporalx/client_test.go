package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, clampBackoff(100*time.Millisecond, time.Second, 1))
	require.Equal(t, 400*time.Millisecond, clampBackoff(100*time.Millisecond, time.Second, 3))
	require.Equal(t, time.Second, clampBackoff(100*time.Millisecond, time.Second, 10))
	require.Equal(t, 250*time.Millisecond, clampBackoff(0, 0, 1))
}

func TestIsRetryableRPC(t *testing.T) {
	require.False(t, isRetryableRPC(nil))
	require.True(t, isRetryableRPC(status.Error(codes.Unavailable, "down")))
	require.True(t, isRetryableRPC(context.DeadlineExceeded))
	require.False(t, isRetryableRPC(status.Error(codes.PermissionDenied, "no")))
	require.False(t, isRetryableRPC(errors.New("boom")))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("MATCH_SWEEP_CRON", "")
	cfg := LoadConfig()
	require.Equal(t, "solace", cfg.Namespace)
	require.Equal(t, "solace-matching", cfg.TaskQueue)
	require.Equal(t, "*/15 * * * *", cfg.SweepCron)
	require.False(t, cfg.mTLS())

	c, err := NewClient(nil, cfg)
	require.NoError(t, err)
	require.Nil(t, c)
}
