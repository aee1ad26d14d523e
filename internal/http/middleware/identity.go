package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "auth.user_id"

// CurrentUserID returns the authenticated user id set by RequireAuth, or
// uuid.Nil on unauthenticated requests.
func CurrentUserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func setCurrentUserID(c *gin.Context, id uuid.UUID) {
	c.Set(userIDKey, id)
}
