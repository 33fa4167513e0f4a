package handlers

import (
	goerrors "errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/taskhive/server/internal/config"
	"github.com/taskhive/server/internal/constants"
	"github.com/taskhive/server/internal/dto"
	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/logger"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/services"
	"github.com/taskhive/server/internal/utils"
)

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Name, email and password are required")
		return
	}

	user, err := h.authService.Register(services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrEmailTaken):
			errors.Conflict(c, "Email is already registered")
		case goerrors.Is(err, services.ErrInvalidEmail),
			goerrors.Is(err, services.ErrNameRequired),
			goerrors.Is(err, services.ErrNameTooLong),
			goerrors.Is(err, services.ErrPasswordTooShort):
			errors.BadRequest(c, err.Error())
		default:
			logger.Error().Err(err).Msg("Failed to register user")
			errors.InternalError(c, "Failed to register user")
		}
		return
	}

	token, err := utils.GenerateToken(user, h.cfg.JWTExpireHours)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		errors.InternalError(c, "Failed to generate token")
		return
	}

	h.startSession(c, user.ID)
	c.JSON(http.StatusCreated, dto.AuthResponse{Token: token, User: dto.ToUserResponse(user)})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Email and password are required")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if goerrors.Is(err, services.ErrInvalidCredentials) {
			errors.RespondWithError(c, http.StatusUnauthorized,
				errors.NewAPIError(errors.ErrCodeInvalidCredentials, "Invalid credentials"))
			return
		}
		logger.Error().Err(err).Msg("Failed to log in user")
		errors.InternalError(c, "Failed to log in")
		return
	}

	token, err := utils.GenerateToken(user, h.cfg.JWTExpireHours)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		errors.InternalError(c, "Failed to generate token")
		return
	}

	h.startSession(c, user.ID)
	c.JSON(http.StatusOK, dto.AuthResponse{Token: token, User: dto.ToUserResponse(user)})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	if err := session.Save(); err != nil {
		logger.Error().Err(err).Msg("Failed to clear session")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
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

	if err := h.authService.TouchLastActive(user.ID); err != nil {
		logger.Warn().Err(err).Uint64("user_id", user.ID).Msg("Failed to update last active")
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserResponse(user)})
}

// UpdateProfile handles PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name            *string `json:"name"`
		Email           *string `json:"email"`
		CurrentPassword string  `json:"currentPassword"`
		NewPassword     string  `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.UpdateProfile(middleware.GetUserID(c), services.UpdateProfileInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrUserNotFound):
			errors.NotFound(c, "User not found")
		case goerrors.Is(err, services.ErrEmailTaken):
			errors.Conflict(c, "Email is already registered")
		case goerrors.Is(err, services.ErrWrongPassword):
			errors.BadRequest(c, "Current password is incorrect")
		case goerrors.Is(err, services.ErrInvalidEmail),
			goerrors.Is(err, services.ErrNameRequired),
			goerrors.Is(err, services.ErrNameTooLong),
			goerrors.Is(err, services.ErrPasswordTooShort):
			errors.BadRequest(c, err.Error())
		default:
			logger.Error().Err(err).Msg("Failed to update profile")
			errors.InternalError(c, "Failed to update profile")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserResponse(user)})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is
// identical whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Email is required")
		return
	}

	token, err := h.authService.ForgotPassword(req.Email)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to process password reset request")
		errors.InternalError(c, "Failed to process request")
		return
	}

	resp := gin.H{"message": "If the email is registered, a reset link has been sent"}
	// Without an outbound mailer the token is surfaced directly, but only
	// outside production.
	if token != "" && !h.cfg.IsProduction() {
		resp["resetToken"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// ResetPassword handles POST /api/auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "New password is required")
		return
	}

	if err := h.authService.ResetPassword(c.Param("token"), req.NewPassword); err != nil {
		switch {
		case goerrors.Is(err, services.ErrInvalidResetToken):
			errors.BadRequest(c, "Invalid or expired reset token")
		case goerrors.Is(err, services.ErrPasswordTooShort):
			errors.BadRequest(c, err.Error())
		default:
			logger.Error().Err(err).Msg("Failed to reset password")
			errors.InternalError(c, "Failed to reset password")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (h *AuthHandler) startSession(c *gin.Context, userID uint64) {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyUserID, userID)
	session.Options(sessions.Options{
		MaxAge:   constants.SessionMaxAge,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
	})
	if err := session.Save(); err != nil {
		logger.Warn().Err(err).Msg("Failed to save session")
	}
}
