package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/solace-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// content
		&types.Vent{},

		// matching
		&types.Match{},
		&types.MatchEvidence{},
		&types.MatchEmotion{},
	)
}

// EnsureMatchIndexes adds the indexes gorm tags cannot express.
func EnsureMatchIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_vent_owner_created", `CREATE INDEX IF NOT EXISTS idx_vent_owner_created ON vent(owner_id, created_at DESC);`},
		{"idx_match_record_user_b_status", `CREATE INDEX IF NOT EXISTS idx_match_record_user_b_status ON match_record(user_b_id, status);`},
		{"idx_match_record_user_a_status", `CREATE INDEX IF NOT EXISTS idx_match_record_user_a_status ON match_record(user_a_id, status);`},
		{"chk_match_record_order", `DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_match_record_order') THEN
				ALTER TABLE match_record ADD CONSTRAINT chk_match_record_order CHECK (user_a_id < user_b_id);
			END IF;
		END $$;`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
