package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/solace-backend/internal/data/repos/content"
	"github.com/yungbote/solace-backend/internal/data/repos/matching"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type VentRepo = content.VentRepo
type MatchRepo = matching.MatchRepo

func NewVentRepo(db *gorm.DB, baseLog *logger.Logger) VentRepo { return content.NewVentRepo(db, baseLog) }

func NewMatchRepo(db *gorm.DB, baseLog *logger.Logger) *MatchRepo {
	return matching.NewMatchRepo(db, baseLog)
}
