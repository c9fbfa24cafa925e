package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/realtime"
)

func TestMatchNotifierDeliversToRecipientChannel(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	a, b := uuid.New(), uuid.New()
	client := hub.NewSSEClient(b)
	hub.AddChannel(client, b.String())

	n := NewMatchNotifier(&HubEmitter{Hub: hub})
	m := &types.Match{ID: uuid.New(), UserAID: a, UserBID: b, Status: types.MatchStatusPending}
	ctx, cancel := context.WithCancel(context.Background())
	n.MatchEvent(ctx, b, matching.EventMatchRequested, m)
	cancel()

	select {
	case msg := <-client.Outbound:
		require.Equal(t, realtime.SSEEventMatchRequested, msg.Event)
		data := msg.Data.(map[string]any)
		require.Equal(t, a, data["counterpart_id"])
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestMatchNotifierIgnoresMissingRecipient(t *testing.T) {
	var n *MatchNotifier
	n.MatchEvent(context.Background(), uuid.New(), matching.EventMatchAccepted, &types.Match{})
	NewMatchNotifier(nil).MatchEvent(context.Background(), uuid.Nil, matching.EventMatchAccepted, &types.Match{})
}

func TestSSEEventMapping(t *testing.T) {
	require.Equal(t, realtime.SSEEventMatchAccepted, sseEventFor(matching.EventMatchAccepted))
	require.Equal(t, realtime.SSEEventMatchRejected, sseEventFor(matching.EventMatchRejected))
	require.Equal(t, realtime.SSEEventMatchUnmatched, sseEventFor(matching.EventMatchUnmatched))
}
