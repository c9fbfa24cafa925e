package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type LifecycleDeps struct {
	Log     *logger.Logger
	Matches MatchStore
	Graph   GraphStore
	Notify  Notifier
}

// Lifecycle owns every status and acceptance change on a match record. The
// primary write always commits first; graph and notification side effects
// follow and never undo it.
type Lifecycle struct {
	log     *logger.Logger
	matches MatchStore
	graph   GraphStore
	notify  Notifier
}

func NewLifecycle(deps LifecycleDeps) (*Lifecycle, error) {
	if deps.Log == nil || deps.Matches == nil {
		return nil, fmt.Errorf("matching: lifecycle missing deps")
	}
	graph := deps.Graph
	if graph == nil {
		graph = noGraph{}
	}
	notify := deps.Notify
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Lifecycle{
		log:     deps.Log.With("component", "MatchLifecycle"),
		matches: deps.Matches,
		graph:   graph,
		notify:  notify,
	}, nil
}

func (l *Lifecycle) GetMatch(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error) {
	return l.load(ctx, matchID, actorID)
}

// AcceptMatchSide records the actor's acceptance. The record only becomes
// accepted once both flags are set, and only one concurrent caller performs
// that promotion.
func (l *Lifecycle) AcceptMatchSide(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error) {
	ctx, span := tracer.Start(ctx, "matching.AcceptMatchSide")
	defer span.End()
	span.SetAttributes(attribute.String("match.id", matchID.String()))

	m, err := l.load(ctx, matchID, actorID)
	if err != nil {
		return nil, err
	}
	if m.Status != types.MatchStatusPending {
		return nil, TransitionError(fmt.Sprintf("cannot accept a %s match", m.Status))
	}
	repeat := m.AcceptedBy(actorID)

	dbc := dbctx.Context{Ctx: ctx}
	ok, err := l.matches.MarkAccepted(dbc, matchID, actorID)
	if err != nil {
		return nil, fmt.Errorf("mark accepted: %w", err)
	}
	if !ok {
		return nil, TransitionError("match is no longer pending")
	}
	promoted, err := l.matches.PromoteIfBothAccepted(dbc, matchID)
	if err != nil {
		return nil, fmt.Errorf("promote match: %w", err)
	}

	m, err = l.reload(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if promoted {
		l.syncEdge(ctx, m)
		l.emitBoth(ctx, m, EventMatchAccepted)
		l.log.Info("match accepted", "match_id", m.ID)
	} else if !repeat && !m.AcceptedBy(m.Counterpart(actorID)) {
		l.emit(ctx, m.Counterpart(actorID), EventMatchRequested, m)
	}
	return m, nil
}

func (l *Lifecycle) RejectMatch(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error) {
	return l.transition(ctx, matchID, actorID, types.MatchStatusPending, types.MatchStatusRejected, EventMatchRejected)
}

func (l *Lifecycle) Unmatch(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error) {
	return l.transition(ctx, matchID, actorID, types.MatchStatusAccepted, types.MatchStatusUnmatched, EventMatchUnmatched)
}

func (l *Lifecycle) transition(ctx context.Context, matchID, actorID uuid.UUID, from, to string, ev Event) (*types.Match, error) {
	ctx, span := tracer.Start(ctx, "matching.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("match.id", matchID.String()),
		attribute.String("match.to", to),
	)

	m, err := l.load(ctx, matchID, actorID)
	if err != nil {
		return nil, err
	}
	if m.Status != from {
		return nil, TransitionError(fmt.Sprintf("cannot move a %s match to %s", m.Status, to))
	}
	ok, err := l.matches.Transition(dbctx.Context{Ctx: ctx}, matchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("transition match: %w", err)
	}
	if !ok {
		return nil, TransitionError(fmt.Sprintf("match is no longer %s", from))
	}

	m, err = l.reload(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := l.graph.DeleteEdge(ctx, m.UserAID, m.UserBID); err != nil {
		l.log.Warn("graph edge delete failed (continuing)", "match_id", m.ID, "error", err)
	}
	l.emitBoth(ctx, m, ev)
	return m, nil
}

func (l *Lifecycle) ListPendingMatches(ctx context.Context, userID uuid.UUID, role PendingRole) ([]*types.Match, error) {
	if userID == uuid.Nil {
		return nil, ValidationError("missing user id")
	}
	switch role {
	case PendingSent, PendingReceived:
	default:
		return nil, ValidationError(fmt.Sprintf("unknown pending role %q", role))
	}
	return l.matches.ListPending(dbctx.Context{Ctx: ctx}, userID, role)
}

// ListSuggestions returns pending matches neither side has acted on, best first.
func (l *Lifecycle) ListSuggestions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Match, error) {
	if userID == uuid.Nil {
		return nil, ValidationError("missing user id")
	}
	return l.matches.ListSuggestions(dbctx.Context{Ctx: ctx}, userID, clampLimit(limit))
}

func (l *Lifecycle) ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Match, error) {
	if userID == uuid.Nil {
		return nil, ValidationError("missing user id")
	}
	return l.matches.ListHistory(dbctx.Context{Ctx: ctx}, userID, clampLimit(limit))
}

// Recommendations reads the graph. Graph failures yield an empty list.
func (l *Lifecycle) Recommendations(ctx context.Context, userID uuid.UUID, limit int) []types.Neighbor {
	if userID == uuid.Nil {
		return nil
	}
	out, err := l.graph.FindRecommendations(ctx, userID, clampLimit(limit))
	if err != nil {
		l.log.Warn("graph recommendations failed (continuing)", "user_id", userID, "error", err)
		return nil
	}
	return out
}

func (l *Lifecycle) load(ctx context.Context, matchID, actorID uuid.UUID) (*types.Match, error) {
	if matchID == uuid.Nil {
		return nil, ValidationError("missing match id")
	}
	if actorID == uuid.Nil {
		return nil, ValidationError("missing actor id")
	}
	m, err := l.reload(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Involves(actorID) {
		return nil, ForbiddenError("actor is not a party to this match")
	}
	return m, nil
}

func (l *Lifecycle) reload(ctx context.Context, matchID uuid.UUID) (*types.Match, error) {
	m, err := l.matches.GetByID(dbctx.Context{Ctx: ctx}, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	if m == nil {
		return nil, NotFoundError("match not found")
	}
	return m, nil
}

// syncEdge writes the edge of an accepted match. An unmatch can commit and
// delete the edge before the upsert lands, so the status is read again
// afterwards and the edge dropped if the match is no longer accepted.
func (l *Lifecycle) syncEdge(ctx context.Context, m *types.Match) {
	if err := l.graph.UpsertEdge(ctx, m.UserAID, m.UserBID, m.MeanEvidenceScore(), m.CommonEmotions); err != nil {
		l.log.Warn("graph edge upsert failed (continuing)", "match_id", m.ID, "error", err)
		return
	}
	cur, err := l.matches.GetByID(dbctx.Context{Ctx: ctx}, m.ID)
	if err != nil {
		l.log.Warn("match reload after edge upsert failed (continuing)", "match_id", m.ID, "error", err)
		return
	}
	if cur != nil && cur.Status == types.MatchStatusAccepted {
		return
	}
	if err := l.graph.DeleteEdge(ctx, m.UserAID, m.UserBID); err != nil {
		l.log.Warn("graph edge delete failed (continuing)", "match_id", m.ID, "error", err)
	}
}

func (l *Lifecycle) emitBoth(ctx context.Context, m *types.Match, ev Event) {
	l.emit(ctx, m.UserAID, ev, m)
	l.emit(ctx, m.UserBID, ev, m)
}

func (l *Lifecycle) emit(ctx context.Context, recipient uuid.UUID, ev Event, m *types.Match) {
	l.notify.MatchEvent(context.WithoutCancel(ctx), recipient, ev, m)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
