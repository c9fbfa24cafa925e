package bus

import (
	"context"

	"github.com/yungbote/solace-backend/internal/realtime"
)

// Bus carries SSE messages between replicas so a notification raised on one
// instance reaches a client connected to another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
