package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/modules/matching/matchingtest"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type memVents struct {
	mu    sync.Mutex
	vents map[uuid.UUID]*types.Vent
}

func newMemVents() *memVents { return &memVents{vents: map[uuid.UUID]*types.Vent{}} }

func (m *memVents) Create(_ dbctx.Context, vs []*types.Vent) ([]*types.Vent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vs {
		m.vents[v.ID] = v
	}
	return vs, nil
}

func (m *memVents) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Vent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vents[id], nil
}

func (m *memVents) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Vent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Vent
	for _, id := range ids {
		if v := m.vents[id]; v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVents) filter(keep func(*types.Vent) bool) []*types.Vent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Vent
	for _, v := range m.vents {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (m *memVents) ListByOwner(_ dbctx.Context, owner uuid.UUID) ([]*types.Vent, error) {
	return m.filter(func(v *types.Vent) bool { return v.OwnerID == owner }), nil
}

func (m *memVents) ListByOwnerPage(_ dbctx.Context, owner uuid.UUID, kind string, limit int) ([]*types.Vent, error) {
	out := m.filter(func(v *types.Vent) bool { return v.OwnerID == owner && (kind == "" || v.Kind == kind) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memVents) ListExcludingOwner(_ dbctx.Context, owner uuid.UUID) ([]*types.Vent, error) {
	return m.filter(func(v *types.Vent) bool { return v.OwnerID != owner }), nil
}

func (m *memVents) ListOwnerIDs(dbctx.Context) ([]uuid.UUID, error) { return nil, nil }

func (m *memVents) DeleteByID(_ dbctx.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vents, id)
	return nil
}

type recordingTrigger struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (r *recordingTrigger) TriggerUser(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, id)
}

type failingPurger struct{}

func (failingPurger) PurgeContentEvidence(dbctx.Context, uuid.UUID) ([]types.PairKey, error) {
	return nil, errors.New("deadlock detected")
}

func newVentService(t *testing.T, purger EvidencePurger) (VentService, *memVents, *recordingTrigger) {
	t.Helper()
	vents := newMemVents()
	trigger := &recordingTrigger{}
	svc, err := NewVentService(VentServiceDeps{
		Log:     logger.Nop(),
		Tx:      passthroughTx{},
		Vents:   vents,
		Purger:  purger,
		Trigger: trigger,
	})
	require.NoError(t, err)
	return svc, vents, trigger
}

func TestCreateVentValidates(t *testing.T) {
	svc, _, trigger := newVentService(t, matchingtest.NewMatchStore())
	owner := uuid.New()
	ctx := context.Background()

	cases := map[string]CreateVentInput{
		"empty":    {Text: "   "},
		"too long": {Text: strings.Repeat("a", maxVentRunes+1)},
		"bad kind": {Text: "hello", Kind: "poem"},
		"long tag": {Text: "hello", EmotionTag: strings.Repeat("x", maxEmotionTagRunes+1)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateVent(ctx, owner, in)
			require.ErrorIs(t, err, matching.ErrValidation)
		})
	}
	_, err := svc.CreateVent(ctx, uuid.Nil, CreateVentInput{Text: "hello"})
	require.ErrorIs(t, err, matching.ErrValidation)
	require.Empty(t, trigger.users)
}

func TestCreateVentTriggersRecompute(t *testing.T) {
	svc, vents, trigger := newVentService(t, matchingtest.NewMatchStore())
	owner := uuid.New()

	v, err := svc.CreateVent(context.Background(), owner, CreateVentInput{
		Text:       "  work deadlines make me anxious ",
		EmotionTag: "Anxious",
		Metadata:   map[string]any{"mood": 3},
	})
	require.NoError(t, err)
	require.Equal(t, types.VentKindVent, v.Kind)
	require.Equal(t, "work deadlines make me anxious", v.Text)
	require.JSONEq(t, `{"mood":3}`, string(v.Metadata))
	require.NotNil(t, vents.vents[v.ID])
	require.Equal(t, []uuid.UUID{owner}, trigger.users)

	mine, err := svc.ListMyVents(context.Background(), owner, "", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	_, err = svc.ListMyVents(context.Background(), owner, "poem", 0)
	require.ErrorIs(t, err, matching.ErrValidation)
}

func TestDeleteVentPurgesEvidence(t *testing.T) {
	store := matchingtest.NewMatchStore()
	svc, vents, trigger := newVentService(t, store)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	va, err := svc.CreateVent(ctx, a, CreateVentInput{Text: "exams and no sleep", EmotionTag: "Stressed"})
	require.NoError(t, err)
	vb, err := svc.CreateVent(ctx, b, CreateVentInput{Text: "no sleep before exams", EmotionTag: "Tired"})
	require.NoError(t, err)

	agg, err := matching.NewAggregator(matching.AggregatorDeps{Log: logger.Nop(), Content: vents, Matches: store})
	require.NoError(t, err)
	_, err = agg.RecomputeMatchesForUser(ctx, a)
	require.NoError(t, err)
	require.Equal(t, 1, store.EvidenceCount())

	require.ErrorIs(t, svc.DeleteVent(ctx, b, va.ID), matching.ErrForbidden)
	require.ErrorIs(t, svc.DeleteVent(ctx, a, uuid.New()), matching.ErrNotFound)

	require.NoError(t, svc.DeleteVent(ctx, a, va.ID))
	require.Nil(t, vents.vents[va.ID])
	require.NotNil(t, vents.vents[vb.ID])
	require.Zero(t, store.EvidenceCount())
	require.Zero(t, store.Match(a, b).MatchScore)
	require.Equal(t, a, trigger.users[len(trigger.users)-1])

	// the owner has no content left, so the next recompute clears the record
	_, err = agg.RecomputeMatchesForUser(ctx, a)
	require.NoError(t, err)
	require.Nil(t, store.Match(a, b))
}

func TestDeleteVentReportsPurgeFailure(t *testing.T) {
	svc, _, trigger := newVentService(t, failingPurger{})
	owner := uuid.New()
	v, err := svc.CreateVent(context.Background(), owner, CreateVentInput{Text: "hello there"})
	require.NoError(t, err)

	err = svc.DeleteVent(context.Background(), owner, v.ID)
	require.ErrorContains(t, err, "deadlock")
	require.Len(t, trigger.users, 1)
}
