package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authRouter(users *testutil.FakeUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	am := NewAuthMiddleware(logger.NewNop(), users, testSecret)
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": CurrentUserID(c)})
	})
	return r
}

func TestRequireAuthResolvesUserFromToken(t *testing.T) {
	users := &testutil.FakeUserRepo{}
	r := authRouter(users)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "auth0|abc123",
		"name":  "Jamie",
		"email": "jamie@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// First sight of the subject creates the user row.
	u, err := users.GetBySubject(dbctx.Context{}, "auth0|abc123")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Jamie", u.Name)
	assert.Contains(t, w.Body.String(), u.ID.String())
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	r := authRouter(&testutil.FakeUserRepo{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsBadSignature(t *testing.T) {
	r := authRouter(&testutil.FakeUserRepo{})
	token := signToken(t, "wrong-secret", jwt.MapClaims{"sub": "user-1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	r := authRouter(&testutil.FakeUserRepo{})
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsMissingSubject(t *testing.T) {
	r := authRouter(&testutil.FakeUserRepo{})
	token := signToken(t, testSecret, jwt.MapClaims{"name": "nobody"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUserIDDefaultsToNil(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, CurrentUserID(c))
}
