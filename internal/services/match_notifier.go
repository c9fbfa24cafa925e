package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/realtime"
)

const notifyTimeout = 5 * time.Second

// MatchNotifier turns lifecycle events into SSE messages on the recipient's
// channel. Delivery runs on its own goroutine so a slow bus never holds up a
// lifecycle call.
type MatchNotifier struct {
	emit SSEEmitter
}

var _ matching.Notifier = (*MatchNotifier)(nil)

func NewMatchNotifier(emit SSEEmitter) *MatchNotifier {
	return &MatchNotifier{emit: emit}
}

func (n *MatchNotifier) MatchEvent(ctx context.Context, recipient uuid.UUID, event matching.Event, m *types.Match) {
	if n == nil || n.emit == nil || recipient == uuid.Nil || m == nil {
		return
	}
	msg := realtime.SSEMessage{
		Channel: recipient.String(),
		Event:   sseEventFor(event),
		Data: map[string]any{
			"match_id":        m.ID,
			"status":          m.Status,
			"counterpart_id":  m.Counterpart(recipient),
			"match_score":     m.MatchScore,
			"common_emotions": m.CommonEmotions,
		},
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		n.emit.Emit(ctx, msg)
	}()
}

func sseEventFor(ev matching.Event) realtime.SSEEvent {
	switch ev {
	case matching.EventMatchRequested:
		return realtime.SSEEventMatchRequested
	case matching.EventMatchAccepted:
		return realtime.SSEEventMatchAccepted
	case matching.EventMatchRejected:
		return realtime.SSEEventMatchRejected
	default:
		return realtime.SSEEventMatchUnmatched
	}
}
