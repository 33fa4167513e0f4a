package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskhive/server/internal/constants"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
	"github.com/taskhive/server/internal/utils"
)

var (
	ErrEmailTaken           = errors.New("email already in use")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrNameRequired         = errors.New("name is required")
	ErrNameTooLong          = errors.New("name is too long")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrInvalidResetToken    = errors.New("invalid or expired reset token")
	ErrInvalidPreference    = errors.New("invalid preference value")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles identity and session business logic.
type AuthService struct {
	userRepo repository.UserRepository
	teamRepo repository.TeamRepository
	hasher   utils.PasswordHasher
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, teamRepo repository.TeamRepository, hasher utils.PasswordHasher) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		teamRepo: teamRepo,
		hasher:   hasher,
	}
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new user with default preferences.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(name) > constants.MaxNameLength {
		return nil, ErrNameTooLong
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		Preferences:  models.DefaultPreferences(),
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user. The error
// is the same whether the user is missing or the password is wrong.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Check(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastActive = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update last active: %w", err)
	}

	return user, nil
}

// GetUser retrieves a non-deleted user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.IsDeleted {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// TouchLastActive updates the user's last-active timestamp.
func (s *AuthService) TouchLastActive(id uint64) error {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return err
	}
	now := time.Now()
	user.LastActive = &now
	return s.userRepo.Update(user)
}

// UpdateProfileInput holds mutable profile fields. A password change
// requires both the current and the new password.
type UpdateProfileInput struct {
	Name            *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile updates name, email (with uniqueness re-check), and
// optionally the password after verifying the current one.
func (s *AuthService) UpdateProfile(userID uint64, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		if len(name) > constants.MaxNameLength {
			return nil, ErrNameTooLong
		}
		user.Name = name
	}

	if input.Email != nil {
		email, err := NormalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if existing, err := s.userRepo.FindByEmail(email); err == nil && existing.ID != user.ID {
				return nil, ErrEmailTaken
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}

	if input.NewPassword != "" {
		if !s.hasher.Check(input.CurrentPassword, user.PasswordHash) {
			return nil, ErrWrongPassword
		}
		if len(input.NewPassword) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := s.hasher.Hash(input.NewPassword)
		if err != nil {
			return nil, ErrFailedToHashPassword
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// UpdatePreferencesInput carries only the enumerated preference keys.
type UpdatePreferencesInput struct {
	Theme         *models.Theme
	Notifications *models.NotificationPrefs
	Timezone      *string
}

// UpdatePreferences applies a partial preference update.
func (s *AuthService) UpdatePreferences(userID uint64, input UpdatePreferencesInput) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if input.Theme != nil {
		if !input.Theme.IsValid() {
			return nil, ErrInvalidPreference
		}
		user.Preferences.Theme = *input.Theme
	}
	if input.Notifications != nil {
		user.Preferences.Notifications = *input.Notifications
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, ErrInvalidPreference
		}
		user.Preferences.Timezone = *input.Timezone
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	return user, nil
}

// DeleteAccount soft-deletes the user and detaches them from all teams.
// Existing task references resolve to a tombstone profile. A user who owns
// an active team with other members must transfer ownership first, so the
// team never loses its only owner while people remain in it.
func (s *AuthService) DeleteAccount(userID uint64) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}

	memberships, err := s.teamRepo.ListMembershipsByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}
	for _, m := range memberships {
		if m.Role != models.RoleOwner || !m.Team.IsActive {
			continue
		}
		members, err := s.teamRepo.ListMembers(m.TeamID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		if len(members) > 1 {
			return ErrOwnerMustTransfer
		}
	}

	if err := s.userRepo.SoftDelete(userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// ForgotPassword issues a reset token for the email, if it belongs to a
// user. The caller's response is the same either way to avoid enumeration.
func (s *AuthService) ForgotPassword(email string) (string, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return "", ErrInvalidEmail
	}

	user, err := s.userRepo.FindByEmail(normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	token, hash, err := utils.GenerateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	expires := time.Now().Add(time.Hour)
	user.ResetTokenHash = hash
	user.ResetTokenExpires = &expires
	if err := s.userRepo.Update(user); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, nil
}

// ResetPassword sets a new password for the owner of a valid reset token.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByResetTokenHash(utils.HashResetToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.ResetTokenExpires == nil || user.ResetTokenExpires.Before(time.Now()) {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return ErrFailedToHashPassword
	}

	user.PasswordHash = hash
	user.ResetTokenHash = ""
	user.ResetTokenExpires = nil
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}
