package matchingtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
)

type Notification struct {
	Recipient uuid.UUID
	Event     matching.Event
	MatchID   uuid.UUID
}

type Notifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *Notifier) MatchEvent(_ context.Context, recipient uuid.UUID, event matching.Event, m *types.Match) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var id uuid.UUID
	if m != nil {
		id = m.ID
	}
	n.sent = append(n.sent, Notification{Recipient: recipient, Event: event, MatchID: id})
}

func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// For returns the events delivered to recipient, in order.
func (n *Notifier) For(recipient uuid.UUID) []matching.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []matching.Event
	for _, s := range n.sent {
		if s.Recipient == recipient {
			out = append(out, s.Event)
		}
	}
	return out
}
