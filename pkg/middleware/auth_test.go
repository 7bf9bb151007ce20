package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/jwt"
)

func newRouter(t *testing.T) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewManager("s3cret", "", time.Minute)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", NewAuthMiddleware(tokens).RequireAuth(), func(c *gin.Context) {
		actor, ok := GetActor(c)
		require.True(t, ok)
		c.String(http.StatusOK, actor.String())
	})
	return r, tokens
}

func TestRequireAuth(t *testing.T) {
	r, tokens := newRouter(t)
	token, _, err := tokens.GenerateToken("User", "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, follow.Ref("User", "alice").String(), w.Body.String())
}

func TestRequireAuthRejects(t *testing.T) {
	r, _ := newRouter(t)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"bad token":  BearerPrefix + "abc",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set(AuthHeaderKey, header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
