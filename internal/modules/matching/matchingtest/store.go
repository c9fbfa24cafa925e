// Package matchingtest holds in-memory doubles for the matching ports. They
// mirror the Postgres semantics closely enough to exercise idempotency,
// canonical pairing and concurrent recomputes without a database.
package matchingtest

import (
	"bytes"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
)

var ErrInjected = errors.New("injected store failure")

type MatchStore struct {
	mu       sync.Mutex
	matches  map[types.PairKey]*types.Match
	evidence map[types.ContentKey]types.MatchEvidence
	emotions map[types.PairKey]map[string]struct{}

	// Live, when set, reports whether a content id still exists. Evidence
	// naming a vanished item is dropped the way the postgres insert drops it.
	Live func(id uuid.UUID) bool

	// FailApply makes the next ApplyPairUpserts calls fail without writing.
	FailApply int
	Applies   int
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches:  map[types.PairKey]*types.Match{},
		evidence: map[types.ContentKey]types.MatchEvidence{},
		emotions: map[types.PairKey]map[string]struct{}{},
	}
}

func (s *MatchStore) ApplyPairUpserts(_ dbctx.Context, upserts []matching.PairUpsert) (matching.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Applies++
	if s.FailApply > 0 {
		s.FailApply--
		return matching.ApplyResult{}, ErrInjected
	}

	var res matching.ApplyResult
	now := time.Now().UTC()
	for _, up := range upserts {
		m := s.matches[up.Key]
		for _, ev := range up.Evidence {
			ck := ev.Key()
			if _, exists := s.evidence[ck]; exists {
				continue
			}
			if s.Live != nil && (!s.Live(ck.Lo) || !s.Live(ck.Hi)) {
				continue
			}
			lo, hi := ev.EmotionA, ev.EmotionB
			if ck.Lo != ev.ContentA {
				lo, hi = hi, lo
			}
			s.evidence[ck] = types.MatchEvidence{
				ID:          uuid.New(),
				UserAID:     up.Key.UserA,
				UserBID:     up.Key.UserB,
				ContentLoID: ck.Lo,
				ContentHiID: ck.Hi,
				PairScore:   ev.Score,
				EmotionLo:   lo,
				EmotionHi:   hi,
				CreatedAt:   now,
			}
			if m == nil {
				m = &types.Match{
					ID:        uuid.New(),
					UserAID:   up.Key.UserA,
					UserBID:   up.Key.UserB,
					Status:    types.MatchStatusPending,
					CreatedAt: now,
				}
				s.matches[up.Key] = m
			}
			m.MatchScore += ev.Score
			res.EvidenceAdded++
			res.ScoreAdded += ev.Score
			s.addEmotion(up.Key, ev.EmotionA)
			s.addEmotion(up.Key, ev.EmotionB)
		}
		if m != nil {
			m.UpdatedAt = now
		}
		res.PairsTouched++
	}
	return res, nil
}

func (s *MatchStore) addEmotion(key types.PairKey, tag string) {
	if tag == "" {
		return
	}
	set := s.emotions[key]
	if set == nil {
		set = map[string]struct{}{}
		s.emotions[key] = set
	}
	set[tag] = struct{}{}
}

func (s *MatchStore) DeleteForUser(_ dbctx.Context, userID uuid.UUID) ([]*types.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Match
	for key, m := range s.matches {
		if !key.Involves(userID) {
			continue
		}
		out = append(out, s.snapshot(m))
		delete(s.matches, key)
		delete(s.emotions, key)
	}
	for ck, ev := range s.evidence {
		if ev.UserAID == userID || ev.UserBID == userID {
			delete(s.evidence, ck)
		}
	}
	return out, nil
}

func (s *MatchStore) PurgeContentEvidence(_ dbctx.Context, contentID uuid.UUID) ([]types.PairKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := map[types.PairKey]struct{}{}
	for ck, ev := range s.evidence {
		if ck.Lo == contentID || ck.Hi == contentID {
			touched[types.PairKey{UserA: ev.UserAID, UserB: ev.UserBID}] = struct{}{}
			delete(s.evidence, ck)
		}
	}
	out := make([]types.PairKey, 0, len(touched))
	for key := range touched {
		m := s.matches[key]
		if m != nil {
			m.MatchScore = 0
		}
		delete(s.emotions, key)
		for _, ev := range s.evidence {
			if ev.UserAID != key.UserA || ev.UserBID != key.UserB {
				continue
			}
			if m != nil {
				m.MatchScore += ev.PairScore
			}
			s.addEmotion(key, ev.EmotionLo)
			s.addEmotion(key, ev.EmotionHi)
		}
		out = append(out, key)
	}
	return out, nil
}

func (s *MatchStore) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.ID == id {
			return s.snapshot(m), nil
		}
	}
	return nil, nil
}

func (s *MatchStore) MarkAccepted(_ dbctx.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byID(id)
	if m == nil || m.Status != types.MatchStatusPending {
		return false, nil
	}
	switch userID {
	case m.UserAID:
		m.UserAAccepted = true
	case m.UserBID:
		m.UserBAccepted = true
	default:
		return false, nil
	}
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MatchStore) PromoteIfBothAccepted(_ dbctx.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byID(id)
	if m == nil || m.Status != types.MatchStatusPending || !m.UserAAccepted || !m.UserBAccepted {
		return false, nil
	}
	m.Status = types.MatchStatusAccepted
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MatchStore) Transition(_ dbctx.Context, id uuid.UUID, from string, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byID(id)
	if m == nil || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UserAAccepted = false
	m.UserBAccepted = false
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MatchStore) ListPending(_ dbctx.Context, userID uuid.UUID, role matching.PendingRole) ([]*types.Match, error) {
	return s.filter(userID, func(m *types.Match) bool {
		if m.Status != types.MatchStatusPending {
			return false
		}
		mine, theirs := m.AcceptedBy(userID), m.AcceptedBy(m.Counterpart(userID))
		if role == matching.PendingSent {
			return mine && !theirs
		}
		return !mine && theirs
	}, 0), nil
}

func (s *MatchStore) ListSuggestions(_ dbctx.Context, userID uuid.UUID, limit int) ([]*types.Match, error) {
	out := s.filter(userID, func(m *types.Match) bool {
		return m.Status == types.MatchStatusPending && !m.UserAAccepted && !m.UserBAccepted
	}, 0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MatchStore) ListHistory(_ dbctx.Context, userID uuid.UUID, limit int) ([]*types.Match, error) {
	out := s.filter(userID, func(m *types.Match) bool {
		return m.Status != types.MatchStatusPending
	}, 0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MatchStore) ListParticipantIDs(_ dbctx.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for key := range s.matches {
		for _, id := range []uuid.UUID{key.UserA, key.UserB} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// Match returns a copy of the record for the unordered pair (x, y), or nil.
func (s *MatchStore) Match(x, y uuid.UUID) *types.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.matches[types.CanonicalPair(x, y)]
	if m == nil {
		return nil
	}
	return s.snapshot(m)
}

func (s *MatchStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

func (s *MatchStore) EvidenceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evidence)
}

func (s *MatchStore) byID(id uuid.UUID) *types.Match {
	for _, m := range s.matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *MatchStore) filter(userID uuid.UUID, keep func(*types.Match) bool, limit int) []*types.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Match
	for _, m := range s.matches {
		if m.Involves(userID) && keep(m) {
			out = append(out, s.snapshot(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MatchStore) snapshot(m *types.Match) *types.Match {
	cp := *m
	key := types.PairKey{UserA: m.UserAID, UserB: m.UserBID}
	cp.CommonEmotions = nil
	for tag := range s.emotions[key] {
		cp.CommonEmotions = append(cp.CommonEmotions, tag)
	}
	sort.Strings(cp.CommonEmotions)
	cp.Evidence = nil
	for _, ev := range s.evidence {
		if ev.UserAID == m.UserAID && ev.UserBID == m.UserBID {
			cp.Evidence = append(cp.Evidence, ev)
		}
	}
	sort.Slice(cp.Evidence, func(i, j int) bool {
		return bytes.Compare(cp.Evidence[i].ContentLoID[:], cp.Evidence[j].ContentLoID[:]) < 0
	})
	return &cp
}
