package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/taskhive/server/internal/constants"
	"github.com/taskhive/server/internal/database"
	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/utils"
)

// AuthRequired authenticates the request. A Bearer token is checked first;
// when absent, the cookie session is consulted. Soft-deleted users are
// rejected even with a valid token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := tokenClaims(c)
		if !ok {
			claims, ok = sessionClaims(c)
		}
		if !ok {
			errors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		var user models.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil || user.IsDeleted {
			errors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUserEmail, user.Email)
		c.Set(constants.ContextKeyUserRole, user.Role)
		c.Set(constants.ContextKeyUserName, user.Name)
		c.Next()
	}
}

func tokenClaims(c *gin.Context) (*utils.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}

	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

func sessionClaims(c *gin.Context) (*utils.Claims, bool) {
	session := sessions.Default(c)
	raw := session.Get(constants.SessionKeyUserID)
	if raw == nil {
		return nil, false
	}

	userID, ok := raw.(uint64)
	if !ok {
		return nil, false
	}
	return &utils.Claims{UserID: userID}, true
}

// GetUserID returns the authenticated user's ID from the gin context.
func GetUserID(c *gin.Context) uint64 {
	return c.GetUint64(constants.ContextKeyUserID)
}

// GetUserEmail returns the authenticated user's email from the gin context.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(constants.ContextKeyUserEmail)
}
