package matching_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/modules/matching/matchingtest"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type lenEmbedder struct{ err error }

func (e lenEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (lenEmbedder) Model() string { return "test-embed" }

type memIndex struct {
	mu      sync.Mutex
	owners  map[uuid.UUID]uuid.UUID
	err     error
	deleted []uuid.UUID
}

func newMemIndex() *memIndex { return &memIndex{owners: map[uuid.UUID]uuid.UUID{}} }

func (m *memIndex) Upsert(_ context.Context, id uuid.UUID, _ []float32, meta matching.IndexMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.owners[id] = meta.OwnerID
	return nil
}

func (m *memIndex) QueryNearest(_ context.Context, _ []float32, k int, excludeOwner uuid.UUID) ([]matching.IndexHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []matching.IndexHit
	for id, owner := range m.owners {
		if owner == excludeOwner {
			continue
		}
		out = append(out, matching.IndexHit{ID: id, OwnerID: owner, Score: 0.9})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (m *memIndex) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, id)
	m.deleted = append(m.deleted, id)
	return m.err
}

func nearestSource(content *matchingtest.ContentStore, idx *matching.EmbeddingIndex) matching.Nearest {
	return matching.Nearest{
		Log:      logger.Nop(),
		Index:    idx,
		Content:  content,
		K:        5,
		Fallback: matching.FullScan{Content: content},
	}
}

func TestNearestUsesIndexHits(t *testing.T) {
	content := matchingtest.NewContentStore()
	index := newMemIndex()
	idx := matching.NewEmbeddingIndex(logger.Nop(), lenEmbedder{}, index, time.Second)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	own := content.Post(a, "exams sleep", "")
	indexed := content.Post(b, "exams tired", "")
	content.Post(c, "never indexed", "")
	require.True(t, idx.IndexContent(context.Background(), own))
	require.True(t, idx.IndexContent(context.Background(), indexed))

	got, err := nearestSource(content, idx).Candidates(context.Background(), a, []*types.Vent{own})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, indexed.ID, got[0].ID)
}

func TestNearestFallsBackToFullScan(t *testing.T) {
	content := matchingtest.NewContentStore()
	a, b := uuid.New(), uuid.New()
	own := content.Post(a, "exams sleep", "")
	content.Post(b, "exams tired", "")

	cases := map[string]*matching.EmbeddingIndex{
		"disabled":    nil,
		"embed fails": matching.NewEmbeddingIndex(logger.Nop(), lenEmbedder{err: errors.New("429")}, newMemIndex(), time.Second),
		"index fails": matching.NewEmbeddingIndex(logger.Nop(), lenEmbedder{}, &memIndex{owners: map[uuid.UUID]uuid.UUID{}, err: errors.New("conn refused")}, time.Second),
	}
	for name, idx := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := nearestSource(content, idx).Candidates(context.Background(), a, []*types.Vent{own})
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, b, got[0].OwnerID)
		})
	}
}

func TestEmbeddingIndexIsBestEffort(t *testing.T) {
	require.Nil(t, matching.NewEmbeddingIndex(logger.Nop(), nil, newMemIndex(), time.Second))

	var disabled *matching.EmbeddingIndex
	require.False(t, disabled.Enabled())
	require.False(t, disabled.IndexContent(context.Background(), &types.Vent{ID: uuid.New()}))
	require.False(t, disabled.Forget(context.Background(), uuid.New()))

	index := newMemIndex()
	idx := matching.NewEmbeddingIndex(logger.Nop(), lenEmbedder{}, index, time.Second)
	id := uuid.New()
	require.True(t, idx.Forget(context.Background(), id))
	require.Equal(t, []uuid.UUID{id}, index.deleted)
}

func TestAggregatorWithNearestCandidates(t *testing.T) {
	content := matchingtest.NewContentStore()
	store := matchingtest.NewMatchStore()
	index := newMemIndex()
	idx := matching.NewEmbeddingIndex(logger.Nop(), lenEmbedder{}, index, time.Second)

	a, b := uuid.New(), uuid.New()
	for _, v := range []*types.Vent{
		content.Post(a, "I feel anxious about work deadlines", "Anxious"),
		content.Post(b, "work deadlines make me so anxious", "Anxious"),
	} {
		require.True(t, idx.IndexContent(context.Background(), v))
	}

	agg, err := matching.NewAggregator(matching.AggregatorDeps{
		Log:        logger.Nop(),
		Content:    content,
		Candidates: nearestSource(content, idx),
		Matches:    store,
	})
	require.NoError(t, err)
	res, err := agg.RecomputeMatchesForUser(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, 1, res.PairsTouched)
	require.NotNil(t, store.Match(a, b))
}
