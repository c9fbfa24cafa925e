package matching

import (
	"bytes"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/solace-backend/internal/domain"
	matchmod "github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// MatchRepo is the postgres MatchStore. Evidence uniqueness is enforced by
// idx_match_evidence_content, which is what makes concurrent recomputes of
// the same pair add each content pair's score once.
type MatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ matchmod.MatchStore = (*MatchRepo)(nil)

func NewMatchRepo(db *gorm.DB, baseLog *logger.Logger) *MatchRepo {
	return &MatchRepo{db: db, log: baseLog.With("repo", "MatchRepo")}
}

func (r *MatchRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

// inTx joins the caller's transaction when there is one.
func (r *MatchRepo) inTx(dbc dbctx.Context, fn func(tx *gorm.DB) error) error {
	if dbc.Tx != nil {
		return fn(dbc.Tx.WithContext(dbc.Ctx))
	}
	return r.db.WithContext(dbc.Ctx).Transaction(fn)
}

func (r *MatchRepo) ApplyPairUpserts(dbc dbctx.Context, upserts []matchmod.PairUpsert) (matchmod.ApplyResult, error) {
	var res matchmod.ApplyResult
	if len(upserts) == 0 {
		return res, nil
	}
	sorted := append([]matchmod.PairUpsert(nil), upserts...)
	matchmod.SortUpserts(sorted)

	err := r.inTx(dbc, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var batch matchmod.ApplyResult
		for _, up := range sorted {
			added, inserted, emotions, err := insertEvidence(tx, up, now)
			if err != nil {
				return err
			}
			if inserted == 0 {
				// nothing new, or every unit named a deleted vent: never
				// create a record without evidence
				if err := touchRecord(tx, up.Key, now); err != nil {
					return err
				}
				batch.PairsTouched++
				continue
			}
			if err := upsertRecord(tx, up.Key, added, now); err != nil {
				return err
			}
			if err := insertEmotions(tx, up.Key, emotions); err != nil {
				return err
			}
			batch.PairsTouched++
			batch.EvidenceAdded += inserted
			batch.ScoreAdded += added
		}
		res = batch
		return nil
	})
	if err != nil {
		return matchmod.ApplyResult{}, MapError("apply pair upserts", err)
	}
	return res, nil
}

// insertEvidenceSQL inserts a unit only while both vents exist. FOR KEY SHARE
// makes a concurrent vent delete wait for this transaction, so its evidence
// purge sees the row; a vent already deleted yields no row at all.
const insertEvidenceSQL = `
INSERT INTO match_evidence
	(id, user_a_id, user_b_id, content_lo_id, content_hi_id, pair_score, emotion_lo, emotion_hi, created_at)
SELECT ?::uuid, ?::uuid, ?::uuid, ?::uuid, ?::uuid, ?::double precision, ?::text, ?::text, ?::timestamptz
WHERE EXISTS (SELECT 1 FROM vent WHERE id = ?::uuid FOR KEY SHARE)
  AND EXISTS (SELECT 1 FROM vent WHERE id = ?::uuid FOR KEY SHARE)
ON CONFLICT (content_lo_id, content_hi_id) DO NOTHING`

// insertEvidence inserts each unit whose content pair is new and whose vents
// still exist, and reports the score and emotions of the rows it inserted.
func insertEvidence(tx *gorm.DB, up matchmod.PairUpsert, now time.Time) (float64, int, []string, error) {
	var (
		added    float64
		inserted int
		emotions []string
	)
	for _, ev := range up.Evidence {
		ck := ev.Key()
		lo, hi := ev.EmotionA, ev.EmotionB
		if ck.Lo != ev.ContentA {
			lo, hi = hi, lo
		}
		result := tx.Exec(insertEvidenceSQL,
			uuid.New(), up.Key.UserA, up.Key.UserB, ck.Lo, ck.Hi, ev.Score, lo, hi, now,
			ck.Lo, ck.Hi,
		)
		if result.Error != nil {
			return 0, 0, nil, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		added += ev.Score
		inserted++
		emotions = append(emotions, lo, hi)
	}
	return added, inserted, emotions, nil
}

// upsertRecord creates the pending record or adds to its score. Status and
// acceptance flags of an existing row are left alone.
func upsertRecord(tx *gorm.DB, key types.PairKey, added float64, now time.Time) error {
	rec := types.Match{
		ID:         uuid.New(),
		UserAID:    key.UserA,
		UserBID:    key.UserB,
		MatchScore: added,
		Status:     types.MatchStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"match_score": gorm.Expr("match_record.match_score + EXCLUDED.match_score"),
			"updated_at":  now,
		}),
	}).Create(&rec).Error
}

func touchRecord(tx *gorm.DB, key types.PairKey, now time.Time) error {
	return tx.Model(&types.Match{}).
		Where("user_a_id = ? AND user_b_id = ?", key.UserA, key.UserB).
		Update("updated_at", now).Error
}

func insertEmotions(tx *gorm.DB, key types.PairKey, tags []string) error {
	seen := map[string]struct{}{}
	rows := make([]types.MatchEmotion, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		rows = append(rows, types.MatchEmotion{UserAID: key.UserA, UserBID: key.UserB, Emotion: tag})
	}
	if len(rows) == 0 {
		return nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Emotion < rows[j].Emotion })
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// DeleteForUser removes every record involving userID with its evidence and
// emotions, and returns the removed records as they were.
func (r *MatchRepo) DeleteForUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Match, error) {
	var removed []*types.Match
	err := r.inTx(dbc, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_a_id = ? OR user_b_id = ?", userID, userID).
			Order("user_a_id ASC, user_b_id ASC").
			Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
			Delete(&types.MatchEvidence{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
			Delete(&types.MatchEmotion{}).Error; err != nil {
			return err
		}
		return tx.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
			Delete(&types.Match{}).Error
	})
	if err != nil {
		return nil, MapError("delete matches for user", err)
	}
	return removed, nil
}

// PurgeContentEvidence drops every evidence row that references contentID and
// rebuilds score and emotions of the affected pairs from what remains.
func (r *MatchRepo) PurgeContentEvidence(dbc dbctx.Context, contentID uuid.UUID) ([]types.PairKey, error) {
	var keys []types.PairKey
	err := r.inTx(dbc, func(tx *gorm.DB) error {
		var rows []types.MatchEvidence
		if err := tx.Where("content_lo_id = ? OR content_hi_id = ?", contentID, contentID).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Where("content_lo_id = ? OR content_hi_id = ?", contentID, contentID).
			Delete(&types.MatchEvidence{}).Error; err != nil {
			return err
		}

		seen := map[types.PairKey]struct{}{}
		for _, ev := range rows {
			key := types.PairKey{UserA: ev.UserAID, UserB: ev.UserBID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return lessPair(keys[i], keys[j]) })

		now := time.Now().UTC()
		for _, key := range keys {
			if err := rebuildPair(tx, key, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, MapError("purge content evidence", err)
	}
	return keys, nil
}

func rebuildPair(tx *gorm.DB, key types.PairKey, now time.Time) error {
	a, b := key.UserA, key.UserB
	if err := tx.Exec(`
		UPDATE match_record
		SET match_score = COALESCE((
			SELECT SUM(e.pair_score) FROM match_evidence e
			WHERE e.user_a_id = ? AND e.user_b_id = ?
		), 0), updated_at = ?
		WHERE user_a_id = ? AND user_b_id = ?
	`, a, b, now, a, b).Error; err != nil {
		return err
	}
	if err := tx.Where("user_a_id = ? AND user_b_id = ?", a, b).
		Delete(&types.MatchEmotion{}).Error; err != nil {
		return err
	}
	return tx.Exec(`
		INSERT INTO match_emotion (user_a_id, user_b_id, emotion)
		SELECT user_a_id, user_b_id, emotion_lo FROM match_evidence
		WHERE user_a_id = ? AND user_b_id = ? AND emotion_lo <> ''
		UNION
		SELECT user_a_id, user_b_id, emotion_hi FROM match_evidence
		WHERE user_a_id = ? AND user_b_id = ? AND emotion_hi <> ''
		ON CONFLICT DO NOTHING
	`, a, b, a, b).Error
}

// GetByID returns nil, nil when no record has that id.
func (r *MatchRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Match, error) {
	tx := r.conn(dbc)
	var m types.Match
	err := tx.Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, MapError("get match", err)
	}
	if err := hydrate(tx, []*types.Match{&m}); err != nil {
		return nil, MapError("hydrate match", err)
	}
	return &m, nil
}

// MarkAccepted sets the caller's flag if the record is still pending.
func (r *MatchRepo) MarkAccepted(dbc dbctx.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	res := r.conn(dbc).Model(&types.Match{}).
		Where("id = ? AND status = ? AND (user_a_id = ? OR user_b_id = ?)", id, types.MatchStatusPending, userID, userID).
		Updates(map[string]interface{}{
			"user_a_accepted": gorm.Expr("user_a_accepted OR user_a_id = ?", userID),
			"user_b_accepted": gorm.Expr("user_b_accepted OR user_b_id = ?", userID),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, MapError("mark accepted", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PromoteIfBothAccepted flips pending to accepted in a single conditional
// update, so exactly one of two racing callers sees true.
func (r *MatchRepo) PromoteIfBothAccepted(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := r.conn(dbc).Model(&types.Match{}).
		Where("id = ? AND status = ? AND user_a_accepted AND user_b_accepted", id, types.MatchStatusPending).
		Updates(map[string]interface{}{
			"status":     types.MatchStatusAccepted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, MapError("promote match", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *MatchRepo) Transition(dbc dbctx.Context, id uuid.UUID, from string, to string) (bool, error) {
	res := r.conn(dbc).Model(&types.Match{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":          to,
			"user_a_accepted": false,
			"user_b_accepted": false,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, MapError("transition match", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *MatchRepo) ListPending(dbc dbctx.Context, userID uuid.UUID, role matchmod.PendingRole) ([]*types.Match, error) {
	mine := "(user_a_id = ? AND user_a_accepted AND NOT user_b_accepted) OR (user_b_id = ? AND user_b_accepted AND NOT user_a_accepted)"
	if role == matchmod.PendingReceived {
		mine = "(user_a_id = ? AND user_b_accepted AND NOT user_a_accepted) OR (user_b_id = ? AND user_a_accepted AND NOT user_b_accepted)"
	}
	q := r.conn(dbc).
		Where("status = ?", types.MatchStatusPending).
		Where(mine, userID, userID).
		Order("updated_at DESC")
	return r.list(dbc, q, "list pending matches")
}

func (r *MatchRepo) ListSuggestions(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Match, error) {
	q := r.conn(dbc).
		Where("status = ? AND NOT user_a_accepted AND NOT user_b_accepted", types.MatchStatusPending).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("match_score DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(dbc, q, "list match suggestions")
}

func (r *MatchRepo) ListHistory(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Match, error) {
	q := r.conn(dbc).
		Where("status <> ?", types.MatchStatusPending).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(dbc, q, "list match history")
}

func (r *MatchRepo) ListParticipantIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.conn(dbc).Raw(`
		SELECT user_a_id AS id FROM match_record
		UNION
		SELECT user_b_id AS id FROM match_record
		ORDER BY id
	`).Scan(&ids).Error; err != nil {
		return nil, MapError("list match participants", err)
	}
	return ids, nil
}

func (r *MatchRepo) list(dbc dbctx.Context, q *gorm.DB, op string) ([]*types.Match, error) {
	var results []*types.Match
	if err := q.Find(&results).Error; err != nil {
		return nil, MapError(op, err)
	}
	if err := hydrate(r.conn(dbc), results); err != nil {
		return nil, MapError(op, err)
	}
	return results, nil
}

// hydrate fills CommonEmotions and Evidence, which live in their own tables.
func hydrate(tx *gorm.DB, ms []*types.Match) error {
	if len(ms) == 0 {
		return nil
	}
	byKey := make(map[types.PairKey]*types.Match, len(ms))
	as := make([]uuid.UUID, 0, len(ms))
	bs := make([]uuid.UUID, 0, len(ms))
	for _, m := range ms {
		m.CommonEmotions = []string{}
		m.Evidence = nil
		byKey[types.PairKey{UserA: m.UserAID, UserB: m.UserBID}] = m
		as = append(as, m.UserAID)
		bs = append(bs, m.UserBID)
	}

	var emotions []types.MatchEmotion
	if err := tx.Where("user_a_id IN ? AND user_b_id IN ?", as, bs).
		Order("emotion ASC").
		Find(&emotions).Error; err != nil {
		return err
	}
	for _, e := range emotions {
		if m := byKey[types.PairKey{UserA: e.UserAID, UserB: e.UserBID}]; m != nil {
			m.CommonEmotions = append(m.CommonEmotions, e.Emotion)
		}
	}

	var evidence []types.MatchEvidence
	if err := tx.Where("user_a_id IN ? AND user_b_id IN ?", as, bs).
		Order("content_lo_id ASC, content_hi_id ASC").
		Find(&evidence).Error; err != nil {
		return err
	}
	for _, ev := range evidence {
		if m := byKey[types.PairKey{UserA: ev.UserAID, UserB: ev.UserBID}]; m != nil {
			m.Evidence = append(m.Evidence, ev)
		}
	}
	return nil
}

func lessPair(a, b types.PairKey) bool {
	if c := bytes.Compare(a.UserA[:], b.UserA[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.UserB[:], b.UserB[:]) < 0
}
