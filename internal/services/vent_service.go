package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/solace-backend/internal/data/db"
	"github.com/yungbote/solace-backend/internal/data/repos"
	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

const (
	maxVentRunes       = 5000
	maxEmotionTagRunes = 64
	defaultVentLimit   = 50
	maxVentLimit       = 200
)

type CreateVentInput struct {
	Kind       string         `json:"kind"`
	Text       string         `json:"text"`
	EmotionTag string         `json:"emotion_tag"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EvidencePurger removes match evidence that points at deleted content.
type EvidencePurger interface {
	PurgeContentEvidence(dbc dbctx.Context, contentID uuid.UUID) ([]types.PairKey, error)
}

// RecomputeTrigger asks for a user's matches to be recomputed soon.
type RecomputeTrigger interface {
	TriggerUser(userID uuid.UUID)
}

type VentService interface {
	CreateVent(ctx context.Context, ownerID uuid.UUID, in CreateVentInput) (*types.Vent, error)
	ListMyVents(ctx context.Context, ownerID uuid.UUID, kind string, limit int) ([]*types.Vent, error)
	DeleteVent(ctx context.Context, ownerID, ventID uuid.UUID) error
}

type VentServiceDeps struct {
	Log     *logger.Logger
	Tx      db.TxRunner
	Vents   repos.VentRepo
	Purger  EvidencePurger
	Index   *matching.EmbeddingIndex
	Trigger RecomputeTrigger
}

type ventService struct {
	log     *logger.Logger
	tx      db.TxRunner
	vents   repos.VentRepo
	purger  EvidencePurger
	index   *matching.EmbeddingIndex
	trigger RecomputeTrigger
}

func NewVentService(deps VentServiceDeps) (VentService, error) {
	if deps.Log == nil || deps.Tx == nil || deps.Vents == nil || deps.Purger == nil {
		return nil, fmt.Errorf("services: vent service missing deps")
	}
	return &ventService{
		log:     deps.Log.With("service", "VentService"),
		tx:      deps.Tx,
		vents:   deps.Vents,
		purger:  deps.Purger,
		index:   deps.Index,
		trigger: deps.Trigger,
	}, nil
}

// CreateVent commits the vent first. Indexing and the recompute trigger run
// afterwards and cannot fail the call.
func (s *ventService) CreateVent(ctx context.Context, ownerID uuid.UUID, in CreateVentInput) (*types.Vent, error) {
	v, err := buildVent(ownerID, in)
	if err != nil {
		return nil, err
	}
	created, err := s.vents.Create(dbctx.Context{Ctx: ctx}, []*types.Vent{v})
	if err != nil {
		return nil, fmt.Errorf("create vent: %w", err)
	}
	v = created[0]
	s.log.Info("vent created", "owner_id", ownerID, "vent_id", v.ID, "kind", v.Kind)

	s.index.IndexContent(ctx, v)
	s.triggerRecompute(ownerID)
	return v, nil
}

func (s *ventService) ListMyVents(ctx context.Context, ownerID uuid.UUID, kind string, limit int) ([]*types.Vent, error) {
	if ownerID == uuid.Nil {
		return nil, matching.ValidationError("missing owner")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "" && kind != types.VentKindVent && kind != types.VentKindJournal {
		return nil, matching.ValidationError("kind must be vent or journal")
	}
	if limit <= 0 {
		limit = defaultVentLimit
	}
	if limit > maxVentLimit {
		limit = maxVentLimit
	}
	return s.vents.ListByOwnerPage(dbctx.Context{Ctx: ctx}, ownerID, kind, limit)
}

// DeleteVent removes the vent and every piece of evidence built from it in
// one transaction, so no match keeps score from content that no longer exists.
func (s *ventService) DeleteVent(ctx context.Context, ownerID, ventID uuid.UUID) error {
	if ownerID == uuid.Nil || ventID == uuid.Nil {
		return matching.ValidationError("missing vent id")
	}
	v, err := s.vents.GetByID(dbctx.Context{Ctx: ctx}, ventID)
	if err != nil {
		return fmt.Errorf("load vent: %w", err)
	}
	if v == nil {
		return matching.NotFoundError("vent not found")
	}
	if v.OwnerID != ownerID {
		return matching.ForbiddenError("not your vent")
	}

	var touched []types.PairKey
	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.vents.DeleteByID(dbc, ventID); err != nil {
			return err
		}
		keys, err := s.purger.PurgeContentEvidence(dbc, ventID)
		touched = keys
		return err
	})
	if err != nil {
		return fmt.Errorf("delete vent: %w", err)
	}
	s.log.Info("vent deleted", "owner_id", ownerID, "vent_id", ventID, "pairs_rebuilt", len(touched))

	s.index.Forget(ctx, ventID)
	s.triggerRecompute(ownerID)
	return nil
}

func (s *ventService) triggerRecompute(userID uuid.UUID) {
	if s.trigger != nil {
		s.trigger.TriggerUser(userID)
	}
}

func buildVent(ownerID uuid.UUID, in CreateVentInput) (*types.Vent, error) {
	if ownerID == uuid.Nil {
		return nil, matching.ValidationError("missing owner")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, matching.ValidationError("text is required")
	}
	if utf8.RuneCountInString(text) > maxVentRunes {
		return nil, matching.ValidationError(fmt.Sprintf("text exceeds %d characters", maxVentRunes))
	}
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	switch kind {
	case "":
		kind = types.VentKindVent
	case types.VentKindVent, types.VentKindJournal:
	default:
		return nil, matching.ValidationError("kind must be vent or journal")
	}
	tag := strings.TrimSpace(in.EmotionTag)
	if utf8.RuneCountInString(tag) > maxEmotionTagRunes {
		return nil, matching.ValidationError("emotion_tag is too long")
	}

	meta := datatypes.JSON([]byte("{}"))
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, matching.ValidationError("metadata must be a JSON object")
		}
		meta = datatypes.JSON(raw)
	}
	return &types.Vent{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Kind:       kind,
		Text:       text,
		EmotionTag: tag,
		Metadata:   meta,
	}, nil
}
