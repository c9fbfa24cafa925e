package matching

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/platform/breaker"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// GuardGraph wraps g so every call has its own deadline and a shared breaker.
// A nil g yields a graph that does nothing.
func GuardGraph(g GraphStore, timeout time.Duration, log *logger.Logger) GraphStore {
	if g == nil {
		return noGraph{}
	}
	return &guardedGraph{next: g, guard: breaker.New(breaker.DefaultConfig("graph", timeout), log)}
}

type guardedGraph struct {
	next  GraphStore
	guard *breaker.Guard
}

func (g *guardedGraph) UpsertEdge(ctx context.Context, a, b uuid.UUID, similarity float64, emotions []string) error {
	return g.guard.Do(ctx, func(ctx context.Context) error {
		return g.next.UpsertEdge(ctx, a, b, similarity, emotions)
	})
}

func (g *guardedGraph) DeleteEdge(ctx context.Context, a, b uuid.UUID) error {
	return g.guard.Do(ctx, func(ctx context.Context) error {
		return g.next.DeleteEdge(ctx, a, b)
	})
}

func (g *guardedGraph) FindDirectMatches(ctx context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error) {
	return breaker.Call(ctx, g.guard, func(ctx context.Context) ([]types.Neighbor, error) {
		return g.next.FindDirectMatches(ctx, userID, limit)
	})
}

func (g *guardedGraph) FindRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error) {
	return breaker.Call(ctx, g.guard, func(ctx context.Context) ([]types.Neighbor, error) {
		return g.next.FindRecommendations(ctx, userID, limit)
	})
}

type noGraph struct{}

func (noGraph) UpsertEdge(context.Context, uuid.UUID, uuid.UUID, float64, []string) error {
	return nil
}
func (noGraph) DeleteEdge(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (noGraph) FindDirectMatches(context.Context, uuid.UUID, int) ([]types.Neighbor, error) {
	return nil, nil
}
func (noGraph) FindRecommendations(context.Context, uuid.UUID, int) ([]types.Neighbor, error) {
	return nil, nil
}
