package models

import (
	"time"
)

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleAdmin     UserRole = "admin"
	UserRoleModerator UserRole = "moderator"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// NotificationPrefs controls which notification channels are enabled.
type NotificationPrefs struct {
	Email         bool `json:"email"`
	Push          bool `json:"push"`
	TaskReminders bool `json:"taskReminders"`
}

// Preferences holds per-user display and notification settings.
type Preferences struct {
	Theme         Theme             `json:"theme"`
	Notifications NotificationPrefs `json:"notifications"`
	Timezone      string            `json:"timezone"`
}

// DefaultPreferences returns the preferences applied at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme: ThemeSystem,
		Notifications: NotificationPrefs{
			Email:         true,
			Push:          true,
			TaskReminders: true,
		},
		Timezone: "UTC",
	}
}

type User struct {
	ID   uint64 `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(50);not null" json:"name"`
	// Unique among non-deleted accounts only, enforced at registration;
	// deletion frees the address for reuse.
	Email         string      `gorm:"type:varchar(255);index;not null" json:"email"`
	PasswordHash  string      `gorm:"type:varchar(255);not null" json:"-"`
	Role          UserRole    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Preferences   Preferences `gorm:"serializer:json" json:"preferences"`
	LastActive    *time.Time  `json:"last_active"`
	IsDeleted     bool        `gorm:"not null;default:false;index" json:"is_deleted"`
	CurrentTeamID *uint64     `json:"current_team_id"`

	// Password reset (hash of the token, never the token itself)
	ResetTokenHash    string     `gorm:"type:varchar(255)" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Memberships   []TeamMember `gorm:"foreignKey:UserID" json:"-"`
	Invitations   []Invitation `gorm:"foreignKey:UserID" json:"-"`
	CreatedTasks  []Task       `gorm:"foreignKey:CreatorID" json:"-"`
	AssignedTasks []Task       `gorm:"foreignKey:AssigneeID" json:"-"`
}

// IsValidRole checks if the role is one of the global roles.
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin, UserRoleModerator:
		return true
	default:
		return false
	}
}

// IsValid checks if the theme is a known value.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	default:
		return false
	}
}
