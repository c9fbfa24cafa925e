package matching

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

const (
	CandidateModeFullScan = "full_scan"
	CandidateModeNearest  = "nearest"
)

// CandidateSource picks the other-owner content a user's items are scored against.
type CandidateSource interface {
	Candidates(ctx context.Context, userID uuid.UUID, own []*types.Vent) ([]*types.Vent, error)
}

// FullScan compares against every item not owned by the user. The cost of a
// sweep grows with users times items squared.
type FullScan struct {
	Content ContentStore
}

func (f FullScan) Candidates(ctx context.Context, userID uuid.UUID, _ []*types.Vent) ([]*types.Vent, error) {
	return f.Content.ListExcludingOwner(dbctx.Context{Ctx: ctx}, userID)
}

// Nearest restricts candidates to each own item's k nearest neighbours in the
// vector index. Any index failure falls back to Fallback for the whole run.
type Nearest struct {
	Log      *logger.Logger
	Index    *EmbeddingIndex
	Content  ContentStore
	K        int
	Fallback CandidateSource
}

func (n Nearest) Candidates(ctx context.Context, userID uuid.UUID, own []*types.Vent) ([]*types.Vent, error) {
	if !n.Index.Enabled() {
		return n.Fallback.Candidates(ctx, userID, own)
	}
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(own)*n.K)
	for _, v := range own {
		hits, ok := n.Index.Nearest(ctx, v, n.K)
		if !ok {
			if n.Log != nil {
				n.Log.Warn("nearest candidates unavailable; falling back to full scan", "user_id", userID)
			}
			return n.Fallback.Candidates(ctx, userID, own)
		}
		for _, h := range hits {
			if h.OwnerID == userID {
				continue
			}
			if _, dup := seen[h.ID]; dup {
				continue
			}
			seen[h.ID] = struct{}{}
			ids = append(ids, h.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return n.Content.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
}
