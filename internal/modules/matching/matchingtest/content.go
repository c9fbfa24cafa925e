package matchingtest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
)

type ContentStore struct {
	mu    sync.Mutex
	vents []*types.Vent

	// Err, when set, is returned from every read.
	Err error
}

func NewContentStore() *ContentStore { return &ContentStore{} }

// Post adds a vent and returns it.
func (s *ContentStore) Post(owner uuid.UUID, text, emotion string) *types.Vent {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &types.Vent{
		ID:         uuid.New(),
		OwnerID:    owner,
		Kind:       types.VentKindVent,
		Text:       text,
		EmotionTag: emotion,
		CreatedAt:  time.Now().UTC(),
	}
	s.vents = append(s.vents, v)
	return v
}

func (s *ContentStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.vents[:0]
	for _, v := range s.vents {
		if v.ID != id {
			out = append(out, v)
		}
	}
	s.vents = out
}

// Exists reports whether id is still stored.
func (s *ContentStore) Exists(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vents {
		if v.ID == id {
			return true
		}
	}
	return false
}

func (s *ContentStore) ListByOwner(_ dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error) {
	return s.list(func(v *types.Vent) bool { return v.OwnerID == ownerID })
}

func (s *ContentStore) ListExcludingOwner(_ dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error) {
	return s.list(func(v *types.Vent) bool { return v.OwnerID != ownerID })
}

func (s *ContentStore) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Vent, error) {
	want := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return s.list(func(v *types.Vent) bool {
		_, ok := want[v.ID]
		return ok
	})
}

func (s *ContentStore) ListOwnerIDs(_ dbctx.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, v := range s.vents {
		if _, ok := seen[v.OwnerID]; !ok {
			seen[v.OwnerID] = struct{}{}
			out = append(out, v.OwnerID)
		}
	}
	return out, nil
}

func (s *ContentStore) list(keep func(*types.Vent) bool) ([]*types.Vent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*types.Vent
	for _, v := range s.vents {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}
