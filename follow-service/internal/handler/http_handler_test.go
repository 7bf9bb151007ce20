package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/follow-graph/follow-service/internal/service"
	"github.com/weiawesome/follow-graph/follow-service/internal/store"
	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/follow/followtest"
	"github.com/weiawesome/follow-graph/pkg/jwt"
	"github.com/weiawesome/follow-graph/pkg/middleware"
)

type server struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	counts, err := store.NewRedisCountStore(mr.Addr(), "", 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { counts.Close() })

	reg := follow.NewRegistry()
	reg.Register("User", follow.RoleBoth)
	reg.Register("Org", follow.RoleFollowable)

	tokens, err := jwt.NewManager("s3cret", "follow-graph", time.Minute)
	require.NoError(t, err)

	svc := service.NewFollowService(follow.New(followtest.NewStore(t)), reg, counts)
	r := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(tokens)).RegisterRoutes(r)
	return &server{router: r, tokens: tokens}
}

// do sends a request, authenticated as actor when it is non-empty.
func (s *server) do(t *testing.T, method, path, actorType, actorID string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if actorID != "" {
		token, _, err := s.tokens.GenerateToken(actorType, actorID)
		require.NoError(t, err)
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func TestFollowLifecycle(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, http.MethodPost, "/api/v1/entities/User/alice/follows/Org/acme?unconfirmed=true", "User", "alice")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "User:alice", data(body)["follower"])
	assert.Equal(t, true, data(body)["unconfirmed"])

	_, body = s.do(t, http.MethodGet, "/api/v1/entities/Org/acme/followers/count", "", "")
	assert.EqualValues(t, 0, data(body)["count"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/entities/Org/acme/confirmations/User/alice", "Org", "acme")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/v1/entities/Org/acme/rights/User/alice", "Org", "acme")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/v1/entities/Org/acme/relations/User/alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, data(body)["unconfirmed"])
	assert.Equal(t, true, data(body)["has_rights"])

	_, body = s.do(t, http.MethodGet, "/api/v1/entities/Org/acme/followers/count", "", "")
	assert.EqualValues(t, 1, data(body)["count"])

	w, body = s.do(t, http.MethodGet, "/api/v1/entities/Org/acme/query/user_followers_with_rights", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"User:alice"}, data(body)["entities"])

	w, _ = s.do(t, http.MethodDelete, "/api/v1/entities/User/alice/follows/Org/acme", "User", "alice")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/entities/User/alice/follows/Org/acme", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlockHidesFollower(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/entities/User/bob/follows/User/alice", "User", "bob")
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/entities/User/alice/blocks/User/bob", "User", "alice")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/entities/User/bob/follows/User/alice", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := s.do(t, http.MethodGet, "/api/v1/entities/User/alice/relations/User/bob", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, data(body)["blocked"])

	_, body = s.do(t, http.MethodGet, "/api/v1/entities/User/alice/query/count_user_followers", "", "")
	assert.EqualValues(t, 0, data(body)["count"])
}

func TestSelfFollowIsNoContent(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/entities/User/alice/follows/User/alice", "User", "alice")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthorization(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/entities/User/alice/follows/Org/acme", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/entities/User/alice/follows/Org/acme", "User", "mallory")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBadRequests(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/entities/Org/acme/follows/User/alice", "Org", "acme")
	assert.Equal(t, http.StatusBadRequest, w.Code, "orgs cannot follow")

	w, _ = s.do(t, http.MethodPost, "/api/v1/entities/User/alice/follows/Widget/w1", "User", "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code, "unregistered type")

	w, _ = s.do(t, http.MethodPost, "/api/v1/entities/User/alice/follows/Org/acme?unconfirmed=maybe", "User", "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/entities/Org/acme/query/loudest_followers", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/entities/Org/acme/query/user_followers?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
