package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/follow-graph/follow-service/internal/service"
	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/follow/resolver"
	pkglog "github.com/weiawesome/follow-graph/pkg/log"
	"github.com/weiawesome/follow-graph/pkg/middleware"
	"github.com/weiawesome/follow-graph/pkg/response"
)

const maxLimit = 500

// Handler handles HTTP requests for the follow graph service.
type Handler struct {
	svc            service.FollowService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc service.FollowService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		svc:            svc,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	auth := h.authMiddleware.RequireAuth()

	entity := r.Group("/api/v1/entities/:type/:id")
	{
		// Follower side: the path entity follows the target.
		entity.POST("/follows/:target_type/:target_id", auth, h.Follow)
		entity.DELETE("/follows/:target_type/:target_id", auth, h.StopFollowing)
		entity.GET("/follows/:target_type/:target_id", h.GetFollow)

		// Followable side: the path entity manages one of its followers.
		entity.POST("/blocks/:target_type/:target_id", auth, h.followableAction("block", h.svc.Block))
		entity.DELETE("/blocks/:target_type/:target_id", auth, h.followableAction("unblock", h.svc.Unblock))
		entity.POST("/confirmations/:target_type/:target_id", auth, h.followableAction("confirm", h.svc.Confirm))
		entity.PUT("/rights/:target_type/:target_id", auth, h.followableAction("give rights", h.svc.GiveRights))
		entity.DELETE("/rights/:target_type/:target_id", auth, h.followableAction("remove rights", h.svc.RemoveRights))
		entity.GET("/relations/:target_type/:target_id", h.GetFollowFor)

		entity.GET("/followers/count", h.GetFollowersCount)
		entity.GET("/query/:request", h.Query)
	}
}

// relationResponse is the JSON form of a follow relation.
type relationResponse struct {
	ID          uint64    `json:"id"`
	Follower    string    `json:"follower"`
	Followable  string    `json:"followable"`
	Blocked     bool      `json:"blocked"`
	Unconfirmed bool      `json:"unconfirmed"`
	HasRights   bool      `json:"has_rights"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRelationResponse(rel *follow.Relation) relationResponse {
	return relationResponse{
		ID:          rel.ID,
		Follower:    rel.Follower.String(),
		Followable:  rel.Followable.String(),
		Blocked:     rel.Blocked,
		Unconfirmed: rel.Unconfirmed,
		HasRights:   rel.HasRights,
		CreatedAt:   rel.CreatedAt,
	}
}

// subject returns the entity named by the :type/:id path segments.
func subject(c *gin.Context) follow.EntityRef {
	return follow.Ref(follow.TypeTag(c.Param("type")), c.Param("id"))
}

// target returns the entity named by the :target_type/:target_id segments.
func target(c *gin.Context) follow.EntityRef {
	return follow.Ref(follow.TypeTag(c.Param("target_type")), c.Param("target_id"))
}

// authorize checks that the authenticated actor is the path entity.
func authorize(c *gin.Context) (follow.EntityRef, bool) {
	self := subject(c)
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return self, false
	}
	if actor != self {
		response.Forbidden(c, "cannot act on behalf of "+self.String())
		return self, false
	}
	return self, true
}

// fail maps service errors onto responses.
func fail(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, service.ErrUnknownType),
		errors.Is(err, service.ErrNotFollower),
		errors.Is(err, service.ErrNotFollowable),
		errors.Is(err, resolver.ErrUnsupportedRequest):
		response.BadRequest(c, err.Error())
	default:
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).Str("operation", what).Msg("request failed")
		response.InternalError(c, "failed to "+what)
	}
}

// Follow handles POST /follows/:target_type/:target_id.
// With ?unconfirmed=true the relation awaits confirmation by the target.
func (h *Handler) Follow(c *gin.Context) {
	self, ok := authorize(c)
	if !ok {
		return
	}

	unconfirmed, err := strconv.ParseBool(c.DefaultQuery("unconfirmed", "false"))
	if err != nil {
		response.BadRequest(c, "unconfirmed must be a boolean")
		return
	}

	rel, err := h.svc.Follow(c.Request.Context(), self, target(c), unconfirmed)
	if err != nil {
		fail(c, err, "follow")
		return
	}
	if rel == nil {
		// Following oneself is ignored.
		response.NoContent(c)
		return
	}
	response.Created(c, toRelationResponse(rel))
}

// StopFollowing handles DELETE /follows/:target_type/:target_id.
func (h *Handler) StopFollowing(c *gin.Context) {
	self, ok := authorize(c)
	if !ok {
		return
	}
	if err := h.svc.StopFollowing(c.Request.Context(), self, target(c)); err != nil {
		fail(c, err, "stop following")
		return
	}
	response.NoContent(c)
}

// GetFollow handles GET /follows/:target_type/:target_id.
func (h *Handler) GetFollow(c *gin.Context) {
	rel, err := h.svc.GetFollow(c.Request.Context(), subject(c), target(c))
	if err != nil {
		fail(c, err, "get follow")
		return
	}
	if rel == nil {
		response.NotFound(c, "not following")
		return
	}
	response.Success(c, toRelationResponse(rel))
}

// followableAction builds a handler for mutations the path entity applies
// to one of its followers.
func (h *Handler) followableAction(what string, op func(ctx context.Context, followable, follower follow.EntityRef) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		self, ok := authorize(c)
		if !ok {
			return
		}
		if err := op(c.Request.Context(), self, target(c)); err != nil {
			fail(c, err, what)
			return
		}
		response.NoContent(c)
	}
}

// GetFollowFor handles GET /relations/:target_type/:target_id.
func (h *Handler) GetFollowFor(c *gin.Context) {
	rel, err := h.svc.GetFollowFor(c.Request.Context(), subject(c), target(c))
	if err != nil {
		fail(c, err, "get relation")
		return
	}
	if rel == nil {
		response.NotFound(c, "no relation")
		return
	}
	response.Success(c, toRelationResponse(rel))
}

// GetFollowersCount handles GET /followers/count.
func (h *Handler) GetFollowersCount(c *gin.Context) {
	count, err := h.svc.FollowersCount(c.Request.Context(), subject(c))
	if err != nil {
		fail(c, err, "get followers count")
		return
	}
	response.Success(c, gin.H{"count": count})
}

// Query handles GET /query/:request, e.g. /query/unconfirmed_user_followers.
func (h *Handler) Query(c *gin.Context) {
	opts, ok := listOptions(c)
	if !ok {
		return
	}

	res, err := h.svc.Query(c.Request.Context(), subject(c), c.Param("request"), opts)
	if err != nil {
		fail(c, err, "run query")
		return
	}

	if res.Request.Op == resolver.OpCount {
		response.Success(c, gin.H{"request": res.Request.Name, "count": res.Count})
		return
	}

	entities := make([]string, 0, len(res.Entities))
	for _, ref := range res.Entities {
		entities = append(entities, ref.String())
	}
	response.Page(c, gin.H{"request": res.Request.Name, "entities": entities}, response.Meta{
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Count:  len(entities),
	})
}

func listOptions(c *gin.Context) (follow.ListOptions, bool) {
	var opts follow.ListOptions
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, name+" must be a non-negative integer")
			return opts, false
		}
		*dst = n
	}
	if opts.Limit > maxLimit {
		opts.Limit = maxLimit
	}
	return opts, true
}
