package vents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	KindVent    = "vent"
	KindJournal = "journal"
)

// Vent is a user-authored content item. Rows are immutable once scored and
// are hard-deleted so the matcher never sees them again.
type Vent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID    uuid.UUID      `gorm:"type:uuid;not null;index;column:owner_id" json:"owner_id"`
	Kind       string         `gorm:"column:kind;not null;default:'vent';index" json:"kind"`
	Text       string         `gorm:"column:text;type:text;not null" json:"text"`
	EmotionTag string         `gorm:"column:emotion_tag;index" json:"emotion_tag"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (Vent) TableName() string { return "vent" }
