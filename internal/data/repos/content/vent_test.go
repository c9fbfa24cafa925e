package content

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/solace-backend/internal/data/repos/testutil"
	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/pkg/dbctx"
)

func TestVentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewVentRepo(db, testutil.Logger(t))

	a, b := uuid.New(), uuid.New()
	created, err := repo.Create(dbc, []*types.Vent{
		{OwnerID: a, Kind: types.VentKindVent, Text: "exams and no sleep", EmotionTag: "Stressed"},
		{OwnerID: a, Kind: types.VentKindJournal, Text: "quiet day", EmotionTag: "Calm"},
		{OwnerID: b, Kind: types.VentKindVent, Text: "exams again", EmotionTag: "Tired"},
	})
	if err != nil || len(created) != 3 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}

	if rows, err := repo.ListByOwner(dbc, a); err != nil || len(rows) != 2 {
		t.Fatalf("ListByOwner: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListByOwnerPage(dbc, a, types.VentKindJournal, 10); err != nil || len(rows) != 1 {
		t.Fatalf("ListByOwnerPage: err=%v len=%d", err, len(rows))
	}
	rows, err := repo.ListExcludingOwner(dbc, a)
	if err != nil {
		t.Fatalf("ListExcludingOwner: %v", err)
	}
	for _, v := range rows {
		if v.OwnerID == a {
			t.Fatalf("ListExcludingOwner returned own vent %s", v.ID)
		}
	}
	if got, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID, created[2].ID}); err != nil || len(got) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(got))
	}

	if err := repo.DeleteByID(dbc, created[0].ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, created[0].ID); err != nil || got != nil {
		t.Fatalf("GetByID after delete: err=%v got=%v", err, got)
	}
	ids, err := repo.ListOwnerIDs(dbc)
	if err != nil {
		t.Fatalf("ListOwnerIDs: %v", err)
	}
	found := 0
	for _, id := range ids {
		if id == a || id == b {
			found++
		}
	}
	if found != 2 {
		t.Fatalf("ListOwnerIDs: want both owners, got=%v", ids)
	}
}
