package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/solace-backend/internal/domain"
)

func SeedVent(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, text, emotion string) *types.Vent {
	tb.Helper()
	v := &types.Vent{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Kind:       types.VentKindVent,
		Text:       text,
		EmotionTag: emotion,
		Metadata:   datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed vent: %v", err)
	}
	return v
}
