package matching

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/platform/breaker"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type IndexMetadata struct {
	OwnerID    uuid.UUID
	EmotionTag string
	Model      string
}

type IndexHit struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	EmotionTag string
	Score      float64
}

// VectorIndex stores one embedding per content item.
type VectorIndex interface {
	Upsert(ctx context.Context, id uuid.UUID, vec []float32, meta IndexMetadata) error
	QueryNearest(ctx context.Context, vec []float32, k int, excludeOwner uuid.UUID) ([]IndexHit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmbeddingIndex pairs an embedder with a vector index. Every call runs under
// its own deadline and breaker; failures are logged and reported as ok=false,
// never returned.
type EmbeddingIndex struct {
	log        *logger.Logger
	embedder   Embedder
	index      VectorIndex
	embedGuard *breaker.Guard
	indexGuard *breaker.Guard
}

// NewEmbeddingIndex returns nil when either collaborator is missing; a nil
// *EmbeddingIndex is a valid, disabled index.
func NewEmbeddingIndex(log *logger.Logger, embedder Embedder, index VectorIndex, timeout time.Duration) *EmbeddingIndex {
	if embedder == nil || index == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EmbeddingIndex{
		log:        log.With("component", "EmbeddingIndex"),
		embedder:   embedder,
		index:      index,
		embedGuard: breaker.New(breaker.DefaultConfig("embedder", timeout), log),
		indexGuard: breaker.New(breaker.DefaultConfig("vector_index", timeout), log),
	}
}

func (e *EmbeddingIndex) Enabled() bool { return e != nil }

func (e *EmbeddingIndex) IndexContent(ctx context.Context, v *types.Vent) bool {
	if e == nil || v == nil {
		return false
	}
	vec, ok := e.embed(ctx, v)
	if !ok {
		return false
	}
	err := e.indexGuard.Do(ctx, func(ctx context.Context) error {
		return e.index.Upsert(ctx, v.ID, vec, IndexMetadata{
			OwnerID:    v.OwnerID,
			EmotionTag: v.EmotionTag,
			Model:      e.embedder.Model(),
		})
	})
	if err != nil {
		e.log.Warn("vector upsert failed (continuing)", "vent_id", v.ID, "error", err)
		return false
	}
	return true
}

// Nearest returns the k closest items owned by someone other than v's owner.
func (e *EmbeddingIndex) Nearest(ctx context.Context, v *types.Vent, k int) ([]IndexHit, bool) {
	if e == nil || v == nil || k <= 0 {
		return nil, false
	}
	vec, ok := e.embed(ctx, v)
	if !ok {
		return nil, false
	}
	hits, err := breaker.Call(ctx, e.indexGuard, func(ctx context.Context) ([]IndexHit, error) {
		return e.index.QueryNearest(ctx, vec, k, v.OwnerID)
	})
	if err != nil {
		e.log.Warn("vector query failed (continuing)", "vent_id", v.ID, "error", err)
		return nil, false
	}
	return hits, true
}

func (e *EmbeddingIndex) Forget(ctx context.Context, ventID uuid.UUID) bool {
	if e == nil || ventID == uuid.Nil {
		return false
	}
	err := e.indexGuard.Do(ctx, func(ctx context.Context) error {
		return e.index.Delete(ctx, ventID)
	})
	if err != nil {
		e.log.Warn("vector delete failed (continuing)", "vent_id", ventID, "error", err)
		return false
	}
	return true
}

func (e *EmbeddingIndex) embed(ctx context.Context, v *types.Vent) ([]float32, bool) {
	vec, err := breaker.Call(ctx, e.embedGuard, func(ctx context.Context) ([]float32, error) {
		return e.embedder.Embed(ctx, v.Text)
	})
	if err != nil || len(vec) == 0 {
		e.log.Warn("embed failed (continuing)", "vent_id", v.ID, "error", err)
		return nil, false
	}
	return vec, true
}
