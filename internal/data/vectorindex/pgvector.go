package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// PGVectorIndex keeps one embedding per vent in vent_embedding and searches
// it by cosine distance.
type PGVectorIndex struct {
	db    *gorm.DB
	log   *logger.Logger
	dims  int
	model string
}

var _ matching.VectorIndex = (*PGVectorIndex)(nil)

// NewPGVectorIndex filters queries to model when it is non-empty, so vectors
// from a previous embedding model are never compared with new ones.
func NewPGVectorIndex(db *gorm.DB, log *logger.Logger, dims int, model string) *PGVectorIndex {
	return &PGVectorIndex{db: db, log: log.With("component", "PGVectorIndex"), dims: dims, model: model}
}

// EnsureSchema creates the extension, table and indexes. The vector column is
// sized from the configured dimensions, which is why it is not a gorm model.
func (x *PGVectorIndex) EnsureSchema(ctx context.Context) error {
	if x.dims <= 0 {
		return fmt.Errorf("vectorindex: dimensions must be positive")
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vent_embedding (
			vent_id uuid PRIMARY KEY,
			owner_id uuid NOT NULL,
			emotion_tag text NOT NULL DEFAULT '',
			model text NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		);`, x.dims),
		`CREATE INDEX IF NOT EXISTS idx_vent_embedding_owner ON vent_embedding(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_vent_embedding_hnsw ON vent_embedding USING hnsw (embedding vector_cosine_ops);`,
	}
	db := x.db.WithContext(ctx)
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("vectorindex schema: %w", err)
		}
	}
	return nil
}

func (x *PGVectorIndex) Upsert(ctx context.Context, id uuid.UUID, vec []float32, meta matching.IndexMetadata) error {
	if err := x.checkDims(vec); err != nil {
		return err
	}
	return x.db.WithContext(ctx).Exec(`
		INSERT INTO vent_embedding (vent_id, owner_id, emotion_tag, model, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (vent_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			emotion_tag = EXCLUDED.emotion_tag,
			model = EXCLUDED.model,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at
	`, id, meta.OwnerID, meta.EmotionTag, meta.Model, pgvector.NewVector(vec), time.Now().UTC()).Error
}

type hitRow struct {
	VentID     uuid.UUID
	OwnerID    uuid.UUID
	EmotionTag string
	Score      float64
}

// QueryNearest returns up to k vents closest to vec, skipping excludeOwner's.
// Score is 1 minus the cosine distance.
func (x *PGVectorIndex) QueryNearest(ctx context.Context, vec []float32, k int, excludeOwner uuid.UUID) ([]matching.IndexHit, error) {
	if err := x.checkDims(vec); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	v := pgvector.NewVector(vec)
	q := x.db.WithContext(ctx).Raw(`
		SELECT vent_id, owner_id, emotion_tag, 1 - (embedding <=> ?) AS score
		FROM vent_embedding
		WHERE owner_id <> ? AND (? = '' OR model = ?)
		ORDER BY embedding <=> ?
		LIMIT ?
	`, v, excludeOwner, x.model, x.model, v, k)

	var rows []hitRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	out := make([]matching.IndexHit, 0, len(rows))
	for _, r := range rows {
		out = append(out, matching.IndexHit{ID: r.VentID, OwnerID: r.OwnerID, EmotionTag: r.EmotionTag, Score: r.Score})
	}
	return out, nil
}

func (x *PGVectorIndex) Delete(ctx context.Context, id uuid.UUID) error {
	return x.db.WithContext(ctx).Exec(`DELETE FROM vent_embedding WHERE vent_id = ?`, id).Error
}

func (x *PGVectorIndex) checkDims(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("vectorindex: empty vector")
	}
	if x.dims > 0 && len(vec) != x.dims {
		return fmt.Errorf("vectorindex: vector has %d dimensions, index expects %d", len(vec), x.dims)
	}
	return nil
}
