package dto

import (
	"time"

	"github.com/taskhive/server/internal/models"
)

// UserResponse is the public representation of a user. The password hash
// and reset token fields never leave the model layer.
type UserResponse struct {
	ID            uint64             `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Role          models.UserRole    `json:"role"`
	Preferences   models.Preferences `json:"preferences"`
	LastActive    *time.Time         `json:"lastActive,omitempty"`
	CurrentTeamID *uint64            `json:"currentTeamId,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// ToUserResponse converts a user model to its response form.
func ToUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		Preferences:   user.Preferences,
		LastActive:    user.LastActive,
		CurrentTeamID: user.CurrentTeamID,
		CreatedAt:     user.CreatedAt,
	}
}

// UserSummary is the compact user block embedded in tasks and memberships.
// Deleted users render as a tombstone so references stay resolvable.
type UserSummary struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ToUserSummary converts a user model to its embedded form.
func ToUserSummary(user *models.User) *UserSummary {
	if user == nil || user.ID == 0 {
		return nil
	}
	if user.IsDeleted {
		return &UserSummary{ID: user.ID, Name: "Deleted User"}
	}
	return &UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
}

// AuthResponse carries a token alongside the authenticated user.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
