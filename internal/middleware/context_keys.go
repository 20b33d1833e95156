package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActorHeader carries the identity of the operator issuing a request. Authentication
// happens upstream; the engine only records who acted.
const ActorHeader = "X-Actor-ID"

const actorIDKey = contextKey("actorID")

// ActorMiddleware requires the actor header on every request it guards and adds the actor to
// the request logger.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + ActorHeader + " header"})
			return
		}
		c.Set(string(actorIDKey), actorID)

		ctx := c.Request.Context()
		logger := GetLoggerFromCtx(ctx).With(zap.String("actor_id", actorID))
		c.Request = c.Request.WithContext(WithLogger(ctx, logger))
		c.Next()
	}
}

// GetActorIDFromContext retrieves the actor ID set by ActorMiddleware.
func GetActorIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(actorIDKey))
	if !exists {
		return "", false
	}
	actorID, ok := val.(string)
	return actorID, ok && actorID != ""
}
