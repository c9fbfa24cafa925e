package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/observability"
)

type instrumentedRecomputer struct {
	inner   matching.Recomputer
	metrics *observability.Metrics
}

func instrumentRecomputer(inner matching.Recomputer, m *observability.Metrics) matching.Recomputer {
	if inner == nil || m == nil {
		return inner
	}
	return &instrumentedRecomputer{inner: inner, metrics: m}
}

func (r *instrumentedRecomputer) RecomputeMatchesForUser(ctx context.Context, userID uuid.UUID) (matching.RecomputeResult, error) {
	start := time.Now()
	res, err := r.inner.RecomputeMatchesForUser(ctx, userID)
	r.metrics.ObserveRecompute(statusOf(err), time.Since(start), res.PairsTouched, res.EvidenceAdded)
	return res, err
}

type instrumentedVectorIndex struct {
	inner   matching.VectorIndex
	metrics *observability.Metrics
}

func instrumentVectorIndex(inner matching.VectorIndex, m *observability.Metrics) matching.VectorIndex {
	if inner == nil || m == nil {
		return inner
	}
	return &instrumentedVectorIndex{inner: inner, metrics: m}
}

func (x *instrumentedVectorIndex) Upsert(ctx context.Context, id uuid.UUID, vec []float32, meta matching.IndexMetadata) error {
	start := time.Now()
	err := x.inner.Upsert(ctx, id, vec, meta)
	x.metrics.ObserveIndexOperation("upsert", statusOf(err), time.Since(start))
	return err
}

func (x *instrumentedVectorIndex) QueryNearest(ctx context.Context, vec []float32, k int, excludeOwner uuid.UUID) ([]matching.IndexHit, error) {
	start := time.Now()
	out, err := x.inner.QueryNearest(ctx, vec, k, excludeOwner)
	x.metrics.ObserveIndexOperation("query_nearest", statusOf(err), time.Since(start))
	return out, err
}

func (x *instrumentedVectorIndex) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := x.inner.Delete(ctx, id)
	x.metrics.ObserveIndexOperation("delete", statusOf(err), time.Since(start))
	return err
}

type instrumentedEmbedder struct {
	inner   matching.Embedder
	metrics *observability.Metrics
}

func instrumentEmbedder(inner matching.Embedder, m *observability.Metrics) matching.Embedder {
	if inner == nil || m == nil {
		return inner
	}
	return &instrumentedEmbedder{inner: inner, metrics: m}
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	out, err := e.inner.Embed(ctx, text)
	e.metrics.ObserveIndexOperation("embed", statusOf(err), time.Since(start))
	return out, err
}

func (e *instrumentedEmbedder) Model() string { return e.inner.Model() }

// countingNotifier counts events before handing them on; it never drops one.
type countingNotifier struct {
	inner   matching.Notifier
	metrics *observability.Metrics
}

func countNotifications(inner matching.Notifier, m *observability.Metrics) matching.Notifier {
	if inner == nil || m == nil {
		return inner
	}
	return &countingNotifier{inner: inner, metrics: m}
}

func (n *countingNotifier) MatchEvent(ctx context.Context, recipient uuid.UUID, event matching.Event, m *types.Match) {
	n.metrics.IncMatchEvent(string(event))
	n.inner.MatchEvent(ctx, recipient, event, m)
}

type sweepMetrics struct {
	metrics *observability.Metrics
}

func (s sweepMetrics) ObserveSweep(report matching.SweepReport, err error) {
	dur := report.FinishedAt.Sub(report.StartedAt)
	if report.FinishedAt.IsZero() {
		dur = time.Since(report.StartedAt)
	}
	s.metrics.ObserveSweep(sweepOutcome(report, err), report.Users, len(report.Failed), dur)
}

func sweepOutcome(report matching.SweepReport, err error) string {
	switch {
	case err != nil:
		return "error"
	case report.Skipped:
		return "skipped"
	case report.HasFailures():
		return "partial"
	default:
		return "ok"
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
