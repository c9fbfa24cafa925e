package matching

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
)

// ContentStore is the read side of the primary content store.
type ContentStore interface {
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error)
	ListExcludingOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Vent, error)
	ListOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error)
}

// EvidenceUnit is one qualifying content pair, oriented so ContentA belongs
// to the pair's UserA.
type EvidenceUnit struct {
	ContentA uuid.UUID
	ContentB uuid.UUID
	Score    float64
	EmotionA string
	EmotionB string
}

func (e EvidenceUnit) Key() types.ContentKey {
	return types.CanonicalContent(e.ContentA, e.ContentB)
}

// PairUpsert is every new piece of evidence for one user pair in a run.
type PairUpsert struct {
	Key      types.PairKey
	Evidence []EvidenceUnit
}

type ApplyResult struct {
	PairsTouched  int     `json:"pairs_touched"`
	EvidenceAdded int     `json:"evidence_added"`
	ScoreAdded    float64 `json:"score_added"`
}

// PendingRole selects which side of a half-accepted match the caller is on.
type PendingRole string

const (
	PendingSent     PendingRole = "sent"
	PendingReceived PendingRole = "received"
)

// MatchStore persists match records. ApplyPairUpserts must be atomic across
// every upsert it is given and must only add score for evidence it inserts.
type MatchStore interface {
	ApplyPairUpserts(dbc dbctx.Context, upserts []PairUpsert) (ApplyResult, error)
	DeleteForUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Match, error)
	PurgeContentEvidence(dbc dbctx.Context, contentID uuid.UUID) ([]types.PairKey, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Match, error)
	MarkAccepted(dbc dbctx.Context, id uuid.UUID, userID uuid.UUID) (bool, error)
	PromoteIfBothAccepted(dbc dbctx.Context, id uuid.UUID) (bool, error)
	Transition(dbc dbctx.Context, id uuid.UUID, from string, to string) (bool, error)

	ListPending(dbc dbctx.Context, userID uuid.UUID, role PendingRole) ([]*types.Match, error)
	ListSuggestions(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Match, error)
	ListHistory(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Match, error)
	ListParticipantIDs(dbc dbctx.Context) ([]uuid.UUID, error)
}

// GraphStore is the auxiliary recommendation graph. It is never a source of truth.
type GraphStore interface {
	UpsertEdge(ctx context.Context, a, b uuid.UUID, similarity float64, emotions []string) error
	DeleteEdge(ctx context.Context, a, b uuid.UUID) error
	FindDirectMatches(ctx context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error)
	FindRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error)
}

type Event string

const (
	EventMatchRequested Event = "match_requested"
	EventMatchAccepted  Event = "match_accepted"
	EventMatchRejected  Event = "match_rejected"
	EventMatchUnmatched Event = "match_unmatched"
)

// Notifier delivers match events. Implementations must not block the caller.
type Notifier interface {
	MatchEvent(ctx context.Context, recipient uuid.UUID, event Event, m *types.Match)
}

type nopNotifier struct{}

func (nopNotifier) MatchEvent(context.Context, uuid.UUID, Event, *types.Match) {}
