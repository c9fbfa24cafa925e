package handlers

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/solace-backend/internal/domain"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/platform/ctxutil"
	"github.com/yungbote/solace-backend/internal/services"
)

type stubVents struct {
	created   []services.CreateVentInput
	deleteErr error
	listKind  string
	listLimit int
}

func (s *stubVents) CreateVent(_ context.Context, owner uuid.UUID, in services.CreateVentInput) (*types.Vent, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, matching.ValidationError("text is required")
	}
	s.created = append(s.created, in)
	return &types.Vent{ID: uuid.New(), OwnerID: owner, Kind: types.VentKindVent, Text: in.Text}, nil
}

func (s *stubVents) ListMyVents(_ context.Context, owner uuid.UUID, kind string, limit int) ([]*types.Vent, error) {
	s.listKind, s.listLimit = kind, limit
	return []*types.Vent{{ID: uuid.New(), OwnerID: owner, Text: "x"}}, nil
}

func (s *stubVents) DeleteVent(context.Context, uuid.UUID, uuid.UUID) error { return s.deleteErr }

func ventRouter(user uuid.UUID, svc services.VentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != uuid.Nil {
			c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: user}))
		}
	})
	h := NewVentHandler(svc)
	r.POST("/vents", h.CreateVent)
	r.GET("/vents", h.ListMyVents)
	r.DELETE("/vents/:id", h.DeleteVent)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateVentHandler(t *testing.T) {
	svc := &stubVents{}
	r := ventRouter(uuid.New(), svc)

	w := serve(r, "POST", "/vents", `{"text":"cannot sleep","emotion_tag":"Tired"}`)
	require.Equal(t, nethttp.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"text":"cannot sleep"`)
	require.Equal(t, "Tired", svc.created[0].EmotionTag)

	w = serve(r, "POST", "/vents", `{"text":"  "}`)
	require.Equal(t, nethttp.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"code":"validation_failed"`)

	require.Equal(t, nethttp.StatusBadRequest, serve(r, "POST", "/vents", `[1,2]`).Code)
}

func TestVentHandlerRequiresUser(t *testing.T) {
	r := ventRouter(uuid.Nil, &stubVents{})
	require.Equal(t, nethttp.StatusUnauthorized, serve(r, "GET", "/vents", "").Code)
}

func TestListMyVentsPassesFilters(t *testing.T) {
	svc := &stubVents{}
	r := ventRouter(uuid.New(), svc)
	w := serve(r, "GET", "/vents?kind=journal&limit=7", "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, "journal", svc.listKind)
	require.Equal(t, 7, svc.listLimit)
	require.Equal(t, nethttp.StatusBadRequest, serve(r, "GET", "/vents?limit=abc", "").Code)
}

func TestDeleteVentHandlerMapsErrors(t *testing.T) {
	svc := &stubVents{}
	r := ventRouter(uuid.New(), svc)
	id := uuid.NewString()

	require.Equal(t, nethttp.StatusNoContent, serve(r, "DELETE", "/vents/"+id, "").Code)
	require.Equal(t, nethttp.StatusBadRequest, serve(r, "DELETE", "/vents/nope", "").Code)

	svc.deleteErr = matching.ForbiddenError("not your vent")
	require.Equal(t, nethttp.StatusForbidden, serve(r, "DELETE", "/vents/"+id, "").Code)
	svc.deleteErr = matching.NotFoundError("vent not found")
	require.Equal(t, nethttp.StatusNotFound, serve(r, "DELETE", "/vents/"+id, "").Code)

	svc.deleteErr = context.DeadlineExceeded
	w := serve(r, "DELETE", "/vents/"+id, "")
	require.Equal(t, nethttp.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "deadline")
}
