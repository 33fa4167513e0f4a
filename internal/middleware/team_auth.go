package middleware

import (
	goerrors "errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taskhive/server/internal/database"
	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/models"
)

// Context keys set by the team middleware chain.
const (
	ContextKeyTeam       = "team"
	ContextKeyTeamMember = "team_member"
)

// RequireTeamAccess loads the team from the :id route parameter and verifies
// membership. Teams the caller does not belong to read as not found so their
// existence is not leaked.
func RequireTeamAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			errors.BadRequest(c, "Invalid team ID")
			c.Abort()
			return
		}

		userID := GetUserID(c)
		db := database.GetDB()

		var team models.Team
		if err := db.Where("id = ? AND is_active = ?", teamID, true).First(&team).Error; err != nil {
			errors.NotFound(c, "Team not found")
			c.Abort()
			return
		}

		var member models.TeamMember
		err = db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
		if err != nil {
			if goerrors.Is(err, gorm.ErrRecordNotFound) {
				errors.NotFound(c, "Team not found")
			} else {
				errors.InternalError(c, "Failed to verify team membership")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyTeam, &team)
		c.Set(ContextKeyTeamMember, &member)
		c.Next()
	}
}

// RequireTeamRole gates a route behind team roles. Must run after
// RequireTeamAccess.
func RequireTeamRole(roles ...models.TeamRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		member := GetTeamMember(c)
		if member == nil {
			errors.InternalError(c, "Team membership not loaded")
			c.Abort()
			return
		}

		for _, role := range roles {
			if member.Role == role {
				c.Next()
				return
			}
		}

		errors.Forbidden(c, "Insufficient team role")
		c.Abort()
	}
}

// GetTeam returns the team loaded by RequireTeamAccess.
func GetTeam(c *gin.Context) *models.Team {
	if v, ok := c.Get(ContextKeyTeam); ok {
		if team, ok := v.(*models.Team); ok {
			return team
		}
	}
	return nil
}

// GetTeamMember returns the caller's membership loaded by RequireTeamAccess.
func GetTeamMember(c *gin.Context) *models.TeamMember {
	if v, ok := c.Get(ContextKeyTeamMember); ok {
		if member, ok := v.(*models.TeamMember); ok {
			return member
		}
	}
	return nil
}
