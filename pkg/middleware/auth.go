package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/jwt"
	pkglog "github.com/weiawesome/follow-graph/pkg/log"
	"github.com/weiawesome/follow-graph/pkg/response"
)

const (
	ActorKey      = pkglog.FieldActor
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthMiddleware validates bearer tokens and records the acting entity.
type AuthMiddleware struct {
	tokens *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		actor := follow.Ref(follow.TypeTag(claims.EntityType), claims.EntityID)
		c.Set(ActorKey, actor)

		l := pkglog.Ctx(c.Request.Context())
		ctx := pkglog.WithLogger(c.Request.Context(), l.With().Str(pkglog.FieldActor, actor.String()).Logger())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetActor extracts the acting entity from Gin context.
func GetActor(c *gin.Context) (follow.EntityRef, bool) {
	if v, exists := c.Get(ActorKey); exists {
		ref, ok := v.(follow.EntityRef)
		return ref, ok
	}
	return follow.EntityRef{}, false
}
