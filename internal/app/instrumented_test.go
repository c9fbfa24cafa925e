package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/modules/matching/matchingtest"
	"github.com/yungbote/solace-backend/internal/observability"
)

type stubRecomputer struct {
	res matching.RecomputeResult
	err error
}

func (s stubRecomputer) RecomputeMatchesForUser(context.Context, uuid.UUID) (matching.RecomputeResult, error) {
	return s.res, s.err
}

type stubIndex struct{ err error }

func (s stubIndex) Upsert(context.Context, uuid.UUID, []float32, matching.IndexMetadata) error {
	return s.err
}

func (s stubIndex) QueryNearest(context.Context, []float32, int, uuid.UUID) ([]matching.IndexHit, error) {
	return nil, s.err
}

func (s stubIndex) Delete(context.Context, uuid.UUID) error { return s.err }

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	return buf.String()
}

func TestInstrumentedRecomputerRecordsOutcome(t *testing.T) {
	m := observability.NewMetrics()
	ctx := context.Background()

	ok := instrumentRecomputer(stubRecomputer{res: matching.RecomputeResult{PairsTouched: 2, EvidenceAdded: 3}}, m)
	_, err := ok.RecomputeMatchesForUser(ctx, uuid.New())
	require.NoError(t, err)

	bad := instrumentRecomputer(stubRecomputer{err: errors.New("db down")}, m)
	_, err = bad.RecomputeMatchesForUser(ctx, uuid.New())
	require.Error(t, err)

	out := scrape(t, m)
	require.Contains(t, out, `solace_match_recomputes_total{status="ok"} 1`)
	require.Contains(t, out, `solace_match_recomputes_total{status="error"} 1`)
	require.Contains(t, out, `solace_match_evidence_added_total 3`)
}

func TestInstrumentNilMetricsPassesThrough(t *testing.T) {
	inner := stubRecomputer{}
	require.Equal(t, matching.Recomputer(inner), instrumentRecomputer(inner, nil))
	require.Nil(t, instrumentVectorIndex(nil, observability.NewMetrics()))
}

func TestInstrumentedVectorIndexLabelsOperations(t *testing.T) {
	m := observability.NewMetrics()
	ctx := context.Background()
	idx := instrumentVectorIndex(stubIndex{}, m)
	require.NoError(t, idx.Upsert(ctx, uuid.New(), []float32{1}, matching.IndexMetadata{}))

	failing := instrumentVectorIndex(stubIndex{err: errors.New("timeout")}, m)
	_, err := failing.QueryNearest(ctx, []float32{1}, 5, uuid.Nil)
	require.Error(t, err)
	require.Error(t, failing.Delete(ctx, uuid.New()))

	out := scrape(t, m)
	require.Contains(t, out, `solace_vector_index_duration_seconds_count{operation="upsert",status="ok"} 1`)
	require.Contains(t, out, `solace_vector_index_duration_seconds_count{operation="query_nearest",status="error"} 1`)
	require.Contains(t, out, `solace_vector_index_duration_seconds_count{operation="delete",status="error"} 1`)
}

func TestCountingNotifierDelegates(t *testing.T) {
	m := observability.NewMetrics()
	inner := &matchingtest.Notifier{}
	n := countNotifications(inner, m)
	user := uuid.New()

	n.MatchEvent(context.Background(), user, matching.EventMatchAccepted, nil)

	require.Equal(t, []matching.Event{matching.EventMatchAccepted}, inner.For(user))
	require.Contains(t, scrape(t, m), `solace_match_events_total{event="match_accepted"} 1`)
}

func TestSweepOutcome(t *testing.T) {
	start := time.Now()
	cases := []struct {
		name   string
		report matching.SweepReport
		err    error
		want   string
	}{
		{"ok", matching.SweepReport{StartedAt: start, FinishedAt: start, Users: 2, Succeeded: 2}, nil, "ok"},
		{"partial", matching.SweepReport{Users: 2, Failed: map[uuid.UUID]string{uuid.New(): "boom"}}, nil, "partial"},
		{"skipped", matching.SweepReport{Skipped: true}, nil, "skipped"},
		{"error", matching.SweepReport{}, errors.New("list users"), "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, sweepOutcome(tc.report, tc.err))
		})
	}

	m := observability.NewMetrics()
	sweepMetrics{metrics: m}.ObserveSweep(cases[1].report, nil)
	require.Contains(t, scrape(t, m), `solace_match_sweeps_total{outcome="partial"} 1`)
}
