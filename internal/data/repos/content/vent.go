package content

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

type VentRepo interface {
	Create(dbc dbctx.Context, vents []*types.Vent) ([]*types.Vent, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Vent, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Vent, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error)
	ListByOwnerPage(dbc dbctx.Context, ownerID uuid.UUID, kind string, limit int) ([]*types.Vent, error)
	ListExcludingOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error)
	ListOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	DeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type ventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVentRepo(db *gorm.DB, baseLog *logger.Logger) VentRepo {
	return &ventRepo{db: db, log: baseLog.With("repo", "VentRepo")}
}

func (r *ventRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *ventRepo) Create(dbc dbctx.Context, vents []*types.Vent) ([]*types.Vent, error) {
	if len(vents) == 0 {
		return []*types.Vent{}, nil
	}
	for _, v := range vents {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
	}
	if err := r.tx(dbc).Create(&vents).Error; err != nil {
		return nil, err
	}
	return vents, nil
}

// GetByID returns nil, nil when the vent does not exist.
func (r *ventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Vent, error) {
	var v types.Vent
	err := r.tx(dbc).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Vent, error) {
	var results []*types.Vent
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ventRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error) {
	var results []*types.Vent
	if err := r.tx(dbc).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListByOwnerPage is the newest-first listing used by the API. An empty kind
// matches every kind.
func (r *ventRepo) ListByOwnerPage(dbc dbctx.Context, ownerID uuid.UUID, kind string, limit int) ([]*types.Vent, error) {
	var results []*types.Vent
	q := r.tx(dbc).Where("owner_id = ?", ownerID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at DESC").Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ventRepo) ListExcludingOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Vent, error) {
	var results []*types.Vent
	if err := r.tx(dbc).
		Where("owner_id <> ?", ownerID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ventRepo) ListOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.tx(dbc).
		Model(&types.Vent{}).
		Distinct("owner_id").
		Pluck("owner_id", &ids).Error; err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *ventRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	return r.tx(dbc).Where("id = ?", id).Delete(&types.Vent{}).Error
}
