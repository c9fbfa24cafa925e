package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/platform/logger"
	"github.com/yungbote/solace-backend/internal/platform/neo4jdb"
)

const defaultNeighborLimit = 20

// MatchSchema is applied once at startup.
var MatchSchema = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
}

const upsertEdgeCypher = `
MERGE (a:User {id: $user_a})
MERGE (b:User {id: $user_b})
MERGE (a)-[r:MATCHED]->(b)
ON CREATE SET
  r.similarity = $similarity,
  r.common_emotions = $emotions,
  r.created_at = $now
ON MATCH SET
  r.similarity = (coalesce(r.similarity, $similarity) + $similarity) / 2.0,
  r.common_emotions = reduce(acc = [], e IN coalesce(r.common_emotions, []) + $emotions |
    CASE WHEN e IN acc THEN acc ELSE acc + e END)
SET r.updated_at = $now
`

const deleteEdgeCypher = `
MATCH (:User {id: $user_a})-[r:MATCHED]-(:User {id: $user_b})
DELETE r
`

const directCypher = `
MATCH (u:User {id: $user_id})-[r:MATCHED]-(o:User)
RETURN o.id AS user_id, r.similarity AS similarity, r.common_emotions AS common_emotions
ORDER BY similarity DESC, user_id ASC
LIMIT $limit
`

const recommendCypher = `
MATCH (u:User {id: $user_id})-[r1:MATCHED]-(mid:User)-[r2:MATCHED]-(o:User)
WHERE o.id <> $user_id
  AND NOT (u)-[:MATCHED]-(o)
  AND NOT (u)-[:BLOCKED]-(o)
WITH o, avg((r1.similarity + r2.similarity) / 2.0) AS score
RETURN o.id AS user_id, score AS similarity
ORDER BY similarity DESC, user_id ASC
LIMIT $limit
`

// MatchGraph keeps one MATCHED relationship per accepted pair, always pointing
// from the lower user id to the higher one.
type MatchGraph struct {
	run neo4jdb.Runner
	log *logger.Logger
}

func NewMatchGraph(run neo4jdb.Runner, log *logger.Logger) *MatchGraph {
	return &MatchGraph{run: run, log: log.With("component", "MatchGraph")}
}

// UpsertEdge averages the new similarity into any existing one and merges emotions.
func (g *MatchGraph) UpsertEdge(ctx context.Context, a, b uuid.UUID, similarity float64, emotions []string) error {
	key := types.CanonicalPair(a, b)
	_, err := g.run.Write(ctx, upsertEdgeCypher, map[string]any{
		"user_a":     key.UserA.String(),
		"user_b":     key.UserB.String(),
		"similarity": similarity,
		"emotions":   dedupe(emotions),
		"now":        time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("upsert matched edge: %w", err)
	}
	return nil
}

func (g *MatchGraph) DeleteEdge(ctx context.Context, a, b uuid.UUID) error {
	key := types.CanonicalPair(a, b)
	if _, err := g.run.Write(ctx, deleteEdgeCypher, map[string]any{
		"user_a": key.UserA.String(),
		"user_b": key.UserB.String(),
	}); err != nil {
		return fmt.Errorf("delete matched edge: %w", err)
	}
	return nil
}

func (g *MatchGraph) FindDirectMatches(ctx context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error) {
	rows, err := g.run.Read(ctx, directCypher, neighborParams(userID, limit))
	if err != nil {
		return nil, fmt.Errorf("find direct matches: %w", err)
	}
	return g.decode(rows), nil
}

// FindRecommendations returns second-degree users not already matched with or
// blocked by userID. With none it falls back to the direct matches.
func (g *MatchGraph) FindRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]types.Neighbor, error) {
	rows, err := g.run.Read(ctx, recommendCypher, neighborParams(userID, limit))
	if err != nil {
		return nil, fmt.Errorf("find recommendations: %w", err)
	}
	if out := g.decode(rows); len(out) > 0 {
		return out, nil
	}
	return g.FindDirectMatches(ctx, userID, limit)
}

func neighborParams(userID uuid.UUID, limit int) map[string]any {
	if limit <= 0 {
		limit = defaultNeighborLimit
	}
	return map[string]any{"user_id": userID.String(), "limit": int64(limit)}
}

func (g *MatchGraph) decode(rows []neo4jdb.Record) []types.Neighbor {
	out := make([]types.Neighbor, 0, len(rows))
	for _, row := range rows {
		raw, _ := row["user_id"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			g.log.Warn("skipping graph row with bad user id", "raw_id", raw)
			continue
		}
		n := types.Neighbor{UserID: id, Similarity: toFloat(row["similarity"])}
		if list, ok := row["common_emotions"].([]any); ok {
			for _, e := range list {
				if s, ok := e.(string); ok {
					n.CommonEmotions = append(n.CommonEmotions, s)
				}
			}
		}
		out = append(out, n)
	}
	return out
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
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
