package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/solace-backend/internal/data/repos"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type Repos struct {
	Vent  repos.VentRepo
	Match *repos.MatchRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Vent:  repos.NewVentRepo(db, log),
		Match: repos.NewMatchRepo(db, log),
	}
}
