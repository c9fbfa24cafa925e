package matching_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/modules/matching/matchingtest"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

func seedMatch(t *testing.T, f *fixture) (a, b uuid.UUID, m *types.Match) {
	t.Helper()
	a, b = uuid.New(), uuid.New()
	f.content.Post(a, "I feel anxious about work deadlines", "Anxious")
	f.content.Post(b, "work deadlines make me so anxious", "Anxious")
	f.recompute(t, a)
	m = f.store.Match(a, b)
	require.NotNil(t, m)
	return a, b, m
}

func TestEndToEndAcceptThenUnmatch(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)
	ctx := context.Background()

	got, err := f.life.AcceptMatchSide(ctx, m.ID, a)
	require.NoError(t, err)
	require.Equal(t, types.MatchStatusPending, got.Status)
	require.True(t, got.AcceptedBy(a))
	require.Equal(t, 0, f.graph.Upserts)
	require.Equal(t, []matching.Event{matching.EventMatchRequested}, f.notify.For(b))

	sent, err := f.life.ListPendingMatches(ctx, a, matching.PendingSent)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	received, err := f.life.ListPendingMatches(ctx, b, matching.PendingReceived)
	require.NoError(t, err)
	require.Len(t, received, 1)

	got, err = f.life.AcceptMatchSide(ctx, m.ID, b)
	require.NoError(t, err)
	require.Equal(t, types.MatchStatusAccepted, got.Status)
	edge, ok := f.graph.Edge(a, b)
	require.True(t, ok)
	require.InDelta(t, 1.0, edge.Similarity, 1e-12)
	require.Equal(t, []string{"Anxious"}, edge.Emotions)

	got, err = f.life.Unmatch(ctx, m.ID, a)
	require.NoError(t, err)
	require.Equal(t, types.MatchStatusUnmatched, got.Status)
	require.False(t, got.UserAAccepted)
	require.False(t, got.UserBAccepted)
	_, ok = f.graph.Edge(a, b)
	require.False(t, ok)

	history, err := f.life.ListHistory(ctx, b, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, []matching.Event{matching.EventMatchAccepted, matching.EventMatchUnmatched}, f.notify.For(a))
}

func TestAcceptRequiresBothSides(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := f.life.AcceptMatchSide(ctx, m.ID, a)
		require.NoError(t, err)
		require.Equal(t, types.MatchStatusPending, got.Status)
	}
	require.Equal(t, 0, f.graph.Upserts)
	// repeated accepts from the same side ask the other side only once
	require.Equal(t, []matching.Event{matching.EventMatchRequested}, f.notify.For(b))
}

// unmatchFirst commits an unmatch, and with it the edge delete, just before
// the accepted edge is written.
type unmatchFirst struct {
	*matchingtest.Graph
	once    sync.Once
	unmatch func()
}

func (g *unmatchFirst) UpsertEdge(ctx context.Context, a, b uuid.UUID, similarity float64, emotions []string) error {
	g.once.Do(g.unmatch)
	return g.Graph.UpsertEdge(ctx, a, b, similarity, emotions)
}

func TestUnmatchDuringPromotionLeavesNoEdge(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)
	ctx := context.Background()

	graph := &unmatchFirst{Graph: f.graph}
	life, err := matching.NewLifecycle(matching.LifecycleDeps{
		Log:     logger.Nop(),
		Matches: f.store,
		Graph:   graph,
		Notify:  f.notify,
	})
	require.NoError(t, err)
	graph.unmatch = func() {
		_, err := life.Unmatch(ctx, m.ID, a)
		require.NoError(t, err)
	}

	_, err = life.AcceptMatchSide(ctx, m.ID, a)
	require.NoError(t, err)
	_, err = life.AcceptMatchSide(ctx, m.ID, b)
	require.NoError(t, err)

	require.Equal(t, types.MatchStatusUnmatched, f.store.Match(a, b).Status)
	_, ok := f.graph.Edge(a, b)
	require.False(t, ok)
}

func TestConcurrentAcceptPromotesOnce(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)

	var wg sync.WaitGroup
	for _, actor := range []uuid.UUID{a, b} {
		actor := actor
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.life.AcceptMatchSide(context.Background(), m.ID, actor)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, types.MatchStatusAccepted, f.store.Match(a, b).Status)
	require.Equal(t, 1, f.graph.Upserts)
}

func TestRejectResetsFlags(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)
	ctx := context.Background()

	_, err := f.life.AcceptMatchSide(ctx, m.ID, a)
	require.NoError(t, err)
	got, err := f.life.RejectMatch(ctx, m.ID, b)
	require.NoError(t, err)
	require.Equal(t, types.MatchStatusRejected, got.Status)
	require.False(t, got.UserAAccepted)
	require.False(t, got.UserBAccepted)
	require.Equal(t, 1, f.graph.Deletes)

	_, err = f.life.AcceptMatchSide(ctx, m.ID, a)
	require.ErrorIs(t, err, matching.ErrInvalidTransition)
	_, err = f.life.Unmatch(ctx, m.ID, a)
	require.ErrorIs(t, err, matching.ErrInvalidTransition)
}

func TestLifecycleAuthorization(t *testing.T) {
	f := newFixture(t)
	_, _, m := seedMatch(t, f)
	ctx := context.Background()
	stranger := uuid.New()

	_, err := f.life.AcceptMatchSide(ctx, m.ID, stranger)
	require.ErrorIs(t, err, matching.ErrForbidden)
	_, err = f.life.RejectMatch(ctx, m.ID, stranger)
	require.ErrorIs(t, err, matching.ErrForbidden)
	_, err = f.life.GetMatch(ctx, m.ID, stranger)
	require.ErrorIs(t, err, matching.ErrForbidden)

	_, err = f.life.AcceptMatchSide(ctx, uuid.New(), stranger)
	require.ErrorIs(t, err, matching.ErrNotFound)
	_, err = f.life.AcceptMatchSide(ctx, uuid.Nil, stranger)
	require.ErrorIs(t, err, matching.ErrValidation)

	require.Equal(t, 403, matching.ToAPIError(matching.ForbiddenError("x")).Status)
	require.Equal(t, 404, matching.ToAPIError(matching.NotFoundError("x")).Status)
	require.Equal(t, 409, matching.ToAPIError(matching.TransitionError("x")).Status)
	require.Equal(t, 400, matching.ToAPIError(matching.ValidationError("x")).Status)
	require.Equal(t, 500, matching.ToAPIError(errors.New("boom")).Status)
}

func TestGraphFailureDoesNotUndoTransition(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)
	f.graph.Err = errors.New("neo4j down")
	ctx := context.Background()

	_, err := f.life.AcceptMatchSide(ctx, m.ID, a)
	require.NoError(t, err)
	got, err := f.life.AcceptMatchSide(ctx, m.ID, b)
	require.NoError(t, err)
	require.Equal(t, types.MatchStatusAccepted, got.Status)

	got, err = f.life.Unmatch(ctx, m.ID, b)
	require.NoError(t, err)
	require.Equal(t, types.MatchStatusUnmatched, got.Status)

	require.Empty(t, f.life.Recommendations(ctx, a, 10))
}

func TestListPendingRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.life.ListPendingMatches(context.Background(), uuid.New(), matching.PendingRole("both"))
	require.ErrorIs(t, err, matching.ErrValidation)
}

func TestListSuggestionsOrdersByScore(t *testing.T) {
	f := newFixture(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	f.content.Post(a, "exams sleep tired hungry", "")
	f.content.Post(b, "exams sleep tired cold", "")
	f.content.Post(c, "exams sleep alone cold", "")
	f.recompute(t, a)

	got, err := f.life.ListSuggestions(context.Background(), a, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].Involves(b))
	require.GreaterOrEqual(t, got[0].MatchScore, got[1].MatchScore)
}

func TestRecommendationsFallBackToDirect(t *testing.T) {
	f := newFixture(t)
	a, b, m := seedMatch(t, f)
	ctx := context.Background()
	_, err := f.life.AcceptMatchSide(ctx, m.ID, a)
	require.NoError(t, err)
	_, err = f.life.AcceptMatchSide(ctx, m.ID, b)
	require.NoError(t, err)

	recs := f.life.Recommendations(ctx, a, 10)
	require.Len(t, recs, 1)
	require.Equal(t, b, recs[0].UserID)
}
