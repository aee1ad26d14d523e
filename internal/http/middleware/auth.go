package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// AuthMiddleware verifies bearer tokens and resolves the local user row.
// The auth provider is a boundary: all we rely on is a signed token with a
// stable subject claim. Users are created on first sight.
type AuthMiddleware struct {
	log    *logger.Logger
	users  repos.UserRepo
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, users repos.UserRepo, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("middleware", "AuthMiddleware"),
		users:  users,
		secret: []byte(secret),
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return am.secret, nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}

		subject, _ := claims.GetSubject()
		if subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "token missing subject", "code": "unauthorized"},
			})
			return
		}
		name, _ := claims["name"].(string)
		email, _ := claims["email"].(string)

		user, err := am.users.UpsertBySubject(dbctx.Context{Ctx: c.Request.Context()}, subject, name, email)
		if err != nil || user == nil || user.ID == uuid.Nil {
			am.log.Error("Failed to resolve user from token", "subject", subject, "error", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "forbidden", "code": "forbidden"},
			})
			return
		}

		setCurrentUserID(c, user.ID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
