package matching

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusUnmatched = "unmatched"
)

// Match aggregates every piece of evidence between two users. UserAID is
// always the lower id so each unordered pair maps to exactly one row.
type Match struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserAID       uuid.UUID `gorm:"type:uuid;not null;column:user_a_id;uniqueIndex:idx_match_pair,priority:1" json:"user_a_id"`
	UserBID       uuid.UUID `gorm:"type:uuid;not null;column:user_b_id;uniqueIndex:idx_match_pair,priority:2;index" json:"user_b_id"`
	MatchScore    float64   `gorm:"column:match_score;not null;default:0" json:"match_score"`
	Status        string    `gorm:"column:status;not null;default:'pending';index" json:"status"`
	UserAAccepted bool      `gorm:"column:user_a_accepted;not null;default:false" json:"user_a_accepted"`
	UserBAccepted bool      `gorm:"column:user_b_accepted;not null;default:false" json:"user_b_accepted"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now();index" json:"updated_at"`

	CommonEmotions []string        `gorm:"-" json:"common_emotions"`
	Evidence       []MatchEvidence `gorm:"-" json:"evidence,omitempty"`
}

func (Match) TableName() string { return "match_record" }

// Involves reports whether userID is one of the two parties.
func (m *Match) Involves(userID uuid.UUID) bool {
	return m != nil && userID != uuid.Nil && (m.UserAID == userID || m.UserBID == userID)
}

func (m *Match) Counterpart(userID uuid.UUID) uuid.UUID {
	if m == nil {
		return uuid.Nil
	}
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

func (m *Match) AcceptedBy(userID uuid.UUID) bool {
	switch {
	case m == nil:
		return false
	case m.UserAID == userID:
		return m.UserAAccepted
	case m.UserBID == userID:
		return m.UserBAccepted
	}
	return false
}

// MeanEvidenceScore is the score written to the graph edge on acceptance.
func (m *Match) MeanEvidenceScore() float64 {
	if m == nil || len(m.Evidence) == 0 {
		return 0
	}
	var sum float64
	for _, ev := range m.Evidence {
		sum += ev.PairScore
	}
	return sum / float64(len(m.Evidence))
}

// MatchEvidence is one scored content-to-content comparison. ContentLoID is
// the lower content id so the unique index collapses (x,y) and (y,x).
type MatchEvidence struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserAID     uuid.UUID `gorm:"type:uuid;not null;column:user_a_id;index:idx_match_evidence_pair,priority:1" json:"user_a_id"`
	UserBID     uuid.UUID `gorm:"type:uuid;not null;column:user_b_id;index:idx_match_evidence_pair,priority:2" json:"user_b_id"`
	ContentLoID uuid.UUID `gorm:"type:uuid;not null;column:content_lo_id;uniqueIndex:idx_match_evidence_content,priority:1" json:"content_lo_id"`
	ContentHiID uuid.UUID `gorm:"type:uuid;not null;column:content_hi_id;uniqueIndex:idx_match_evidence_content,priority:2;index" json:"content_hi_id"`
	PairScore   float64   `gorm:"column:pair_score;not null" json:"pair_score"`
	EmotionLo   string    `gorm:"column:emotion_lo" json:"emotion_lo,omitempty"`
	EmotionHi   string    `gorm:"column:emotion_hi" json:"emotion_hi,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (MatchEvidence) TableName() string { return "match_evidence" }

// MatchEmotion is one member of a pair's common-emotion set.
type MatchEmotion struct {
	UserAID uuid.UUID `gorm:"type:uuid;primaryKey;column:user_a_id" json:"user_a_id"`
	UserBID uuid.UUID `gorm:"type:uuid;primaryKey;column:user_b_id" json:"user_b_id"`
	Emotion string    `gorm:"primaryKey;column:emotion" json:"emotion"`
}

func (MatchEmotion) TableName() string { return "match_emotion" }

// PairKey is the canonical, order-independent identity of a user pair.
type PairKey struct {
	UserA uuid.UUID
	UserB uuid.UUID
}

func CanonicalPair(x, y uuid.UUID) PairKey {
	if Less(y, x) {
		x, y = y, x
	}
	return PairKey{UserA: x, UserB: y}
}

func (k PairKey) Involves(userID uuid.UUID) bool {
	return k.UserA == userID || k.UserB == userID
}

func (k PairKey) String() string { return k.UserA.String() + ":" + k.UserB.String() }

// Less orders ids by their raw bytes.
func Less(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }

// ContentKey is the unordered identity of a content pair.
type ContentKey struct {
	Lo uuid.UUID
	Hi uuid.UUID
}

func CanonicalContent(x, y uuid.UUID) ContentKey {
	if Less(y, x) {
		x, y = y, x
	}
	return ContentKey{Lo: x, Hi: y}
}

// Neighbor is a user reachable in the match graph.
type Neighbor struct {
	UserID         uuid.UUID `json:"user_id"`
	Similarity     float64   `json:"similarity"`
	CommonEmotions []string  `json:"common_emotions,omitempty"`
}
