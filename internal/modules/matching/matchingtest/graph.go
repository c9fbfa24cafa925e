package matchingtest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
)

type Edge struct {
	Similarity float64
	Emotions   []string
}

// Graph is an in-memory GraphStore that applies the same averaging and
// emotion-merge rules as the neo4j store.
type Graph struct {
	mu    sync.Mutex
	edges map[types.PairKey]Edge

	// Err, when set, fails every call.
	Err     error
	Upserts int
	Deletes int
}

func NewGraph() *Graph { return &Graph{edges: map[types.PairKey]Edge{}} }

func (g *Graph) UpsertEdge(_ context.Context, a, b uuid.UUID, similarity float64, emotions []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Upserts++
	if g.Err != nil {
		return g.Err
	}
	key := types.CanonicalPair(a, b)
	e, ok := g.edges[key]
	if !ok {
		g.edges[key] = Edge{Similarity: similarity, Emotions: dedupe(emotions)}
		return nil
	}
	e.Similarity = (e.Similarity + similarity) / 2
	e.Emotions = dedupe(append(e.Emotions, emotions...))
	g.edges[key] = e
	return nil
}

func (g *Graph) DeleteEdge(_ context.Context, a, b uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Deletes++
	if g.Err != nil {
		return g.Err
	}
	delete(g.edges, types.CanonicalPair(a, b))
	return nil
}

func (g *Graph) FindDirectMatches(_ context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return g.direct(userID, limit), nil
}

func (g *Graph) FindRecommendations(_ context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	direct := g.direct(userID, 0)
	linked := map[uuid.UUID]struct{}{userID: {}}
	for _, n := range direct {
		linked[n.UserID] = struct{}{}
	}
	sums := map[uuid.UUID][]float64{}
	for _, mid := range direct {
		for _, far := range g.direct(mid.UserID, 0) {
			if _, skip := linked[far.UserID]; skip {
				continue
			}
			sums[far.UserID] = append(sums[far.UserID], (mid.Similarity+far.Similarity)/2)
		}
	}
	if len(sums) == 0 {
		return truncate(direct, limit), nil
	}
	out := make([]types.Neighbor, 0, len(sums))
	for id, vals := range sums {
		var total float64
		for _, v := range vals {
			total += v
		}
		out = append(out, types.Neighbor{UserID: id, Similarity: total / float64(len(vals))})
	}
	sortNeighbors(out)
	return truncate(out, limit), nil
}

func (g *Graph) Edge(a, b uuid.UUID) (Edge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[types.CanonicalPair(a, b)]
	return e, ok
}

func (g *Graph) direct(userID uuid.UUID, limit int) []types.Neighbor {
	var out []types.Neighbor
	for key, e := range g.edges {
		if !key.Involves(userID) {
			continue
		}
		other := key.UserA
		if other == userID {
			other = key.UserB
		}
		out = append(out, types.Neighbor{UserID: other, Similarity: e.Similarity, CommonEmotions: e.Emotions})
	}
	sortNeighbors(out)
	return truncate(out, limit)
}

func sortNeighbors(ns []types.Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Similarity != ns[j].Similarity {
			return ns[i].Similarity > ns[j].Similarity
		}
		return ns[i].UserID.String() < ns[j].UserID.String()
	})
}

func truncate(ns []types.Neighbor, limit int) []types.Neighbor {
	if limit > 0 && len(ns) > limit {
		return ns[:limit]
	}
	return ns
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var _ matching.GraphStore = (*Graph)(nil)
