package middleware

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/solace-backend/internal/platform/ctxutil"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

func authEngine(t *testing.T) (*gin.Engine, *ctxutil.RequestData) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	am, err := NewAuthMiddleware(logger.Nop(), "s3cret")
	require.NoError(t, err)
	seen := &ctxutil.RequestData{}
	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		*seen = *ctxutil.GetRequestData(c.Request.Context())
		c.Status(nethttp.StatusOK)
	})
	r.GET("/admin", am.RequireAuth(), am.RequireAdmin(), func(c *gin.Context) { c.Status(nethttp.StatusOK) })
	return r, seen
}

func call(r *gin.Engine, path, token string) int {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAuthAttachesActor(t *testing.T) {
	r, seen := authEngine(t)
	user := uuid.New()
	tok, err := SignToken("s3cret", user, "Admin", time.Minute)
	require.NoError(t, err)

	require.Equal(t, nethttp.StatusOK, call(r, "/me", tok))
	require.Equal(t, user, seen.UserID)
	require.Equal(t, "admin", seen.Role)
	require.Equal(t, nethttp.StatusOK, call(r, "/admin", tok))
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	r, _ := authEngine(t)
	user := uuid.New()

	expired, err := SignToken("s3cret", user, "", -time.Minute)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusUnauthorized, call(r, "/me", expired))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: user.String()}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusUnauthorized, call(r, "/me", noExp))

	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusUnauthorized, call(r, "/me", badSub))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusUnauthorized, call(r, "/me", unsigned))
}

func TestRequireAdminRejectsMembers(t *testing.T) {
	r, _ := authEngine(t)
	tok, err := SignToken("s3cret", uuid.New(), "member", time.Minute)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusForbidden, call(r, "/admin", tok))
}

func TestNewAuthMiddlewareNeedsSecret(t *testing.T) {
	_, err := NewAuthMiddleware(logger.Nop(), " ")
	require.Error(t, err)
}

func TestSplitOrigins(t *testing.T) {
	require.Equal(t, []string{"https://app.solace.dev", "http://localhost:3000"}, splitOrigins(" https://app.solace.dev/, ,http://localhost:3000"))
	require.Nil(t, splitOrigins(""))
}
