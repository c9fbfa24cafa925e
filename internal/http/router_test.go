package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/solace-backend/internal/domain"
	httpH "github.com/yungbote/solace-backend/internal/http/handlers"
	httpMW "github.com/yungbote/solace-backend/internal/http/middleware"
	"github.com/yungbote/solace-backend/internal/modules/matching"
	"github.com/yungbote/solace-backend/internal/modules/matching/matchingtest"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

const testSecret = "router-test-secret"

type routerFixture struct {
	engine  *gin.Engine
	content *matchingtest.ContentStore
	store   *matchingtest.MatchStore
	graph   *matchingtest.Graph
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	f := &routerFixture{
		content: matchingtest.NewContentStore(),
		store:   matchingtest.NewMatchStore(),
		graph:   matchingtest.NewGraph(),
	}
	agg, err := matching.NewAggregator(matching.AggregatorDeps{Log: log, Content: f.content, Matches: f.store, Graph: f.graph})
	require.NoError(t, err)
	life, err := matching.NewLifecycle(matching.LifecycleDeps{Log: log, Matches: f.store, Graph: f.graph, Notify: &matchingtest.Notifier{}})
	require.NoError(t, err)
	driver, err := matching.NewDriver(matching.DriverDeps{Log: log, Recomputer: agg, Users: matching.KnownUsers(f.content, f.store)})
	require.NoError(t, err)
	auth, err := httpMW.NewAuthMiddleware(log, testSecret)
	require.NoError(t, err)

	f.engine = NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: auth,
		HealthHandler:  httpH.NewHealthHandler(nil),
		MatchHandler:   httpH.NewMatchHandler(life, driver),
		AdminHandler:   httpH.NewAdminHandler(driver),
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path string, user uuid.UUID, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != uuid.Nil {
		tok, err := httpMW.SignToken(testSecret, user, role, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeMatch(t *testing.T, w *httptest.ResponseRecorder) types.Match {
	t.Helper()
	var body struct {
		Match types.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Match
}

func TestHealthcheckIsPublic(t *testing.T) {
	f := newRouterFixture(t)
	w := f.do(t, "GET", "/healthcheck", uuid.Nil, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAuthRequired(t *testing.T) {
	f := newRouterFixture(t)
	require.Equal(t, nethttp.StatusUnauthorized, f.do(t, "GET", "/api/matches/suggestions", uuid.Nil, "").Code)

	req := httptest.NewRequest("GET", "/api/matches/suggestions", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, nethttp.StatusUnauthorized, w.Code)

	other, err := httpMW.SignToken("some-other-secret", uuid.New(), "", time.Minute)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/matches/suggestions?token="+other, nil))
	require.Equal(t, nethttp.StatusUnauthorized, w.Code)
}

func TestMatchFlowOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	a, b, outsider := uuid.New(), uuid.New(), uuid.New()
	f.content.Post(a, "panic attacks before every exam", "Anxious")
	f.content.Post(b, "exam panic attacks again tonight", "Scared")

	w := f.do(t, "POST", "/api/matches/recompute", a, "")
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"pairs_touched":1`)

	m := f.store.Match(a, b)
	require.NotNil(t, m)
	path := "/api/matches/" + m.ID.String()

	require.Equal(t, nethttp.StatusForbidden, f.do(t, "GET", path, outsider, "").Code)
	require.Equal(t, nethttp.StatusNotFound, f.do(t, "GET", "/api/matches/"+uuid.NewString(), a, "").Code)
	require.Equal(t, nethttp.StatusBadRequest, f.do(t, "GET", "/api/matches/not-a-uuid", a, "").Code)

	w = f.do(t, "POST", path+"/accept", a, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Equal(t, types.MatchStatusPending, decodeMatch(t, w).Status)

	w = f.do(t, "GET", "/api/matches/pending?role=received", b, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), m.ID.String())
	require.Equal(t, nethttp.StatusBadRequest, f.do(t, "GET", "/api/matches/pending?role=both", b, "").Code)

	w = f.do(t, "POST", path+"/accept", b, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	got := decodeMatch(t, w)
	require.Equal(t, types.MatchStatusAccepted, got.Status)
	require.ElementsMatch(t, []string{"Anxious", "Scared"}, got.CommonEmotions)

	w = f.do(t, "GET", "/api/matches/recommendations", a, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), b.String())

	require.Equal(t, nethttp.StatusOK, f.do(t, "POST", path+"/unmatch", b, "").Code)
	w = f.do(t, "POST", path+"/unmatch", a, "")
	require.Equal(t, nethttp.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), `"code":"invalid_transition"`)

	w = f.do(t, "GET", "/api/matches/history?limit=5", a, "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), types.MatchStatusUnmatched)
	require.Equal(t, nethttp.StatusBadRequest, f.do(t, "GET", "/api/matches/history?limit=-1", a, "").Code)
}

func TestEmptyListsRenderAsArrays(t *testing.T) {
	f := newRouterFixture(t)
	w := f.do(t, "GET", "/api/matches/suggestions", uuid.New(), "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	require.JSONEq(t, `{"matches":[]}`, w.Body.String())

	w = f.do(t, "GET", "/api/matches/recommendations", uuid.New(), "")
	require.JSONEq(t, `{"recommendations":[]}`, w.Body.String())
}

func TestAdminSweepRequiresAdminRole(t *testing.T) {
	f := newRouterFixture(t)
	a, b := uuid.New(), uuid.New()
	f.content.Post(a, "lonely since moving cities", "Lonely")
	f.content.Post(b, "moving cities made me lonely", "Lonely")

	require.Equal(t, nethttp.StatusForbidden, f.do(t, "POST", "/api/admin/matches/sweep", a, "").Code)

	w := f.do(t, "POST", "/api/admin/matches/sweep", a, "admin")
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	var body struct {
		Report matching.SweepReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Report.Users)
	require.Equal(t, 2, body.Report.Succeeded)
	require.False(t, body.Report.HasFailures())
	require.NotNil(t, f.store.Match(a, b))
}

func TestUnregisteredRoutesWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{Log: logger.Nop(), HealthHandler: httpH.NewHealthHandler(nil)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/matches/suggestions", strings.NewReader("")))
	require.Equal(t, nethttp.StatusNotFound, w.Code)
}
