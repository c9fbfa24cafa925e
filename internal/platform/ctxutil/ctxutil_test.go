package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLogFields(t *testing.T) {
	require.Empty(t, LogFields(context.Background()))

	user := uuid.New()
	ctx := WithTrace(context.Background(), Trace{RequestID: "req-1"})
	ctx = WithRequestData(ctx, &RequestData{UserID: user, Role: "admin"})

	require.Equal(t, []interface{}{"request_id", "req-1", "user_id", user, "role", "admin"}, LogFields(ctx))
	require.True(t, GetRequestData(ctx).IsAdmin())
}
