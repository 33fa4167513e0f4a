package handlers

import (
	goerrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/server/internal/dto"
	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/logger"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/services"
)

// UserHandler handles account-level endpoints.
type UserHandler struct {
	authService *services.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// UpdatePreferences handles PATCH /api/users/me/preferences
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var req struct {
		Theme         *models.Theme             `json:"theme"`
		Notifications *models.NotificationPrefs `json:"notifications"`
		Timezone      *string                   `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.UpdatePreferences(middleware.GetUserID(c), services.UpdatePreferencesInput{
		Theme:         req.Theme,
		Notifications: req.Notifications,
		Timezone:      req.Timezone,
	})
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrUserNotFound):
			errors.NotFound(c, "User not found")
		case goerrors.Is(err, services.ErrInvalidPreference):
			errors.BadRequest(c, "Invalid preference value")
		default:
			logger.Error().Err(err).Msg("Failed to update preferences")
			errors.InternalError(c, "Failed to update preferences")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": user.Preferences})
}

// DeleteAccount handles DELETE /api/users/me. The account is soft-deleted:
// authored content survives under a tombstone.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.authService.DeleteAccount(middleware.GetUserID(c)); err != nil {
		switch {
		case goerrors.Is(err, services.ErrUserNotFound):
			errors.NotFound(c, "User not found")
		case goerrors.Is(err, services.ErrOwnerMustTransfer):
			errors.Conflict(c, "Transfer ownership of your teams before deleting your account")
		default:
			logger.Error().Err(err).Msg("Failed to delete account")
			errors.InternalError(c, "Failed to delete account")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// GetProfile handles GET /api/users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.authService.GetUser(middleware.GetUserID(c))
	if err != nil {
		if goerrors.Is(err, services.ErrUserNotFound) {
			errors.NotFound(c, "User not found")
			return
		}
		logger.Error().Err(err).Msg("Failed to load user")
		errors.InternalError(c, "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserResponse(user)})
}
