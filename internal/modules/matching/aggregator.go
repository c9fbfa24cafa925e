package matching

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// DefaultThreshold is the per-pair similarity a content pair must exceed to count as evidence.
const DefaultThreshold = 0.3

var tracer = otel.Tracer("solace/matching")

type AggregatorDeps struct {
	Log        *logger.Logger
	Content    ContentStore
	Candidates CandidateSource
	Matches    MatchStore
	Graph      GraphStore
	Threshold  float64
}

// Aggregator folds content-pair similarity into per-user-pair match records.
type Aggregator struct {
	log        *logger.Logger
	content    ContentStore
	candidates CandidateSource
	matches    MatchStore
	graph      GraphStore
	threshold  float64
}

func NewAggregator(deps AggregatorDeps) (*Aggregator, error) {
	if deps.Log == nil || deps.Content == nil || deps.Matches == nil {
		return nil, fmt.Errorf("matching: aggregator missing deps")
	}
	candidates := deps.Candidates
	if candidates == nil {
		candidates = FullScan{Content: deps.Content}
	}
	graph := deps.Graph
	if graph == nil {
		graph = noGraph{}
	}
	threshold := deps.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Aggregator{
		log:        deps.Log.With("component", "MatchAggregator"),
		content:    deps.Content,
		candidates: candidates,
		matches:    deps.Matches,
		graph:      graph,
		threshold:  threshold,
	}, nil
}

type RecomputeResult struct {
	UserID        uuid.UUID `json:"user_id"`
	OwnContent    int       `json:"own_content"`
	Candidates    int       `json:"candidates"`
	Qualifying    int       `json:"qualifying"`
	PairsTouched  int       `json:"pairs_touched"`
	EvidenceAdded int       `json:"evidence_added"`
	Cleared       int       `json:"cleared"`
}

// RecomputeMatchesForUser rescoring is additive and idempotent: evidence that
// is already recorded for a content pair is never counted twice, whichever
// side's run found it first.
func (a *Aggregator) RecomputeMatchesForUser(ctx context.Context, userID uuid.UUID) (RecomputeResult, error) {
	res := RecomputeResult{UserID: userID}
	if userID == uuid.Nil {
		return res, ValidationError("missing user id")
	}

	ctx, span := tracer.Start(ctx, "matching.RecomputeMatchesForUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	dbc := dbctx.Context{Ctx: ctx}

	own, err := a.content.ListByOwner(dbc, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list own content")
		return res, fmt.Errorf("list own content: %w", err)
	}
	res.OwnContent = len(own)

	if len(own) == 0 {
		cleared, err := a.clearUser(ctx, userID)
		res.Cleared = cleared
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "clear matches")
		}
		return res, err
	}

	cands, err := a.candidates.Candidates(ctx, userID, own)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list candidates")
		return res, fmt.Errorf("list candidates: %w", err)
	}
	res.Candidates = len(cands)
	if len(cands) == 0 {
		return res, nil
	}

	upserts := a.buildUpserts(userID, own, cands)
	for _, u := range upserts {
		res.Qualifying += len(u.Evidence)
	}
	if len(upserts) == 0 {
		return res, nil
	}

	applied, err := a.matches.ApplyPairUpserts(dbc, upserts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk upsert")
		return res, fmt.Errorf("apply match upserts: %w", err)
	}
	res.PairsTouched = applied.PairsTouched
	res.EvidenceAdded = applied.EvidenceAdded

	span.SetAttributes(
		attribute.Int("matching.pairs", res.PairsTouched),
		attribute.Int("matching.evidence_added", res.EvidenceAdded),
	)
	a.log.Debug("match recompute done",
		"user_id", userID,
		"own_content", res.OwnContent,
		"candidates", res.Candidates,
		"pairs", res.PairsTouched,
		"evidence_added", res.EvidenceAdded,
	)
	return res, nil
}

func (a *Aggregator) buildUpserts(userID uuid.UUID, own, cands []*types.Vent) []PairUpsert {
	ownVecs := make([]Vector, len(own))
	for i, v := range own {
		if v != nil {
			ownVecs[i] = Vectorize(v.Text)
		}
	}

	byPair := map[types.PairKey]*PairUpsert{}
	seenContent := map[types.ContentKey]struct{}{}

	for _, other := range cands {
		if other == nil || other.OwnerID == userID || other.OwnerID == uuid.Nil {
			continue
		}
		otherVec := Vectorize(other.Text)
		if otherVec.Empty() {
			continue
		}
		for i, mine := range own {
			if mine == nil || mine.ID == other.ID || ownVecs[i].Empty() {
				continue
			}
			score := Similarity(ownVecs[i], otherVec)
			if score <= a.threshold {
				continue
			}
			ck := types.CanonicalContent(mine.ID, other.ID)
			if _, dup := seenContent[ck]; dup {
				continue
			}
			seenContent[ck] = struct{}{}

			key := types.CanonicalPair(userID, other.OwnerID)
			unit := EvidenceUnit{
				ContentA: mine.ID,
				ContentB: other.ID,
				Score:    score,
				EmotionA: strings.TrimSpace(mine.EmotionTag),
				EmotionB: strings.TrimSpace(other.EmotionTag),
			}
			if key.UserA != userID {
				unit.ContentA, unit.ContentB = unit.ContentB, unit.ContentA
				unit.EmotionA, unit.EmotionB = unit.EmotionB, unit.EmotionA
			}

			up := byPair[key]
			if up == nil {
				up = &PairUpsert{Key: key}
				byPair[key] = up
			}
			up.Evidence = append(up.Evidence, unit)
		}
	}

	out := make([]PairUpsert, 0, len(byPair))
	for _, up := range byPair {
		sort.Slice(up.Evidence, func(i, j int) bool {
			return lessContent(up.Evidence[i].Key(), up.Evidence[j].Key())
		})
		out = append(out, *up)
	}
	SortUpserts(out)
	return out
}

// SortUpserts orders upserts by pair key so concurrent writers take row locks
// in the same order.
func SortUpserts(ups []PairUpsert) {
	sort.Slice(ups, func(i, j int) bool {
		ki, kj := ups[i].Key, ups[j].Key
		if c := bytes.Compare(ki.UserA[:], kj.UserA[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(ki.UserB[:], kj.UserB[:]) < 0
	})
}

func lessContent(a, b types.ContentKey) bool {
	if c := bytes.Compare(a.Lo[:], b.Lo[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.Hi[:], b.Hi[:]) < 0
}

func (a *Aggregator) clearUser(ctx context.Context, userID uuid.UUID) (int, error) {
	removed, err := a.matches.DeleteForUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return 0, fmt.Errorf("clear matches: %w", err)
	}
	for _, m := range removed {
		if m == nil || m.Status != types.MatchStatusAccepted {
			continue
		}
		if err := a.graph.DeleteEdge(ctx, m.UserAID, m.UserBID); err != nil {
			a.log.Warn("graph edge cleanup failed (continuing)", "match_id", m.ID, "error", err)
		}
	}
	if len(removed) > 0 {
		a.log.Info("cleared matches for user without content", "user_id", userID, "count", len(removed))
	}
	return len(removed), nil
}
