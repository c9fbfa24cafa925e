package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/http/response"
	"github.com/yungbote/solace-backend/internal/modules/matching"
)

// MatchLifecycle is the slice of the matching lifecycle the HTTP layer drives.
type MatchLifecycle interface {
	GetMatch(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error)
	AcceptMatchSide(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error)
	RejectMatch(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error)
	Unmatch(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error)
	ListPendingMatches(ctx context.Context, userID uuid.UUID, role matching.PendingRole) ([]*types.Match, error)
	ListSuggestions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Match, error)
	ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Match, error)
	Recommendations(ctx context.Context, userID uuid.UUID, limit int) []types.Neighbor
}

type MatchHandler struct {
	lifecycle  MatchLifecycle
	recomputer matching.Recomputer
}

func NewMatchHandler(lifecycle MatchLifecycle, recomputer matching.Recomputer) *MatchHandler {
	return &MatchHandler{lifecycle: lifecycle, recomputer: recomputer}
}

// GET /api/matches/pending?role=sent|received
func (h *MatchHandler) ListPending(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	role := matching.PendingRole(c.DefaultQuery("role", string(matching.PendingReceived)))
	matches, err := h.lifecycle.ListPendingMatches(c.Request.Context(), userID, role)
	if err != nil {
		respondMatchingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"matches": nonNil(matches), "role": role})
}

// GET /api/matches/suggestions
func (h *MatchHandler) ListSuggestions(c *gin.Context) {
	h.list(c, h.lifecycle.ListSuggestions)
}

// GET /api/matches/history
func (h *MatchHandler) ListHistory(c *gin.Context) {
	h.list(c, h.lifecycle.ListHistory)
}

func (h *MatchHandler) list(c *gin.Context, fetch func(context.Context, uuid.UUID, int) ([]*types.Match, error)) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	matches, err := fetch(c.Request.Context(), userID, limit)
	if err != nil {
		respondMatchingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"matches": nonNil(matches)})
}

// GET /api/matches/recommendations
func (h *MatchHandler) Recommendations(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	recs := h.lifecycle.Recommendations(c.Request.Context(), userID, limit)
	if recs == nil {
		recs = []types.Neighbor{}
	}
	response.RespondOK(c, gin.H{"recommendations": recs})
}

// POST /api/matches/recompute runs the caller's recompute inline, under the
// same timeout and panic guard as the sweep.
func (h *MatchHandler) Recompute(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	res, err := h.recomputer.RecomputeMatchesForUser(c.Request.Context(), userID)
	if err != nil {
		respondMatchingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// GET /api/matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	h.act(c, h.lifecycle.GetMatch)
}

// POST /api/matches/:id/accept
func (h *MatchHandler) Accept(c *gin.Context) {
	h.act(c, h.lifecycle.AcceptMatchSide)
}

// POST /api/matches/:id/reject
func (h *MatchHandler) Reject(c *gin.Context) {
	h.act(c, h.lifecycle.RejectMatch)
}

// POST /api/matches/:id/unmatch
func (h *MatchHandler) Unmatch(c *gin.Context) {
	h.act(c, h.lifecycle.Unmatch)
}

func (h *MatchHandler) act(c *gin.Context, op func(context.Context, uuid.UUID, uuid.UUID) (*types.Match, error)) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "invalid_match_id")
	if !ok {
		return
	}
	m, err := op(c.Request.Context(), matchID, userID)
	if err != nil {
		respondMatchingError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"match": m})
}

func nonNil(ms []*types.Match) []*types.Match {
	if ms == nil {
		return []*types.Match{}
	}
	return ms
}
