package models

import "time"

type TeamRole string

const (
	RoleOwner        TeamRole = "owner"
	RoleAdmin        TeamRole = "admin"
	RoleCollaborator TeamRole = "collaborator"
)

// IsValid checks if the role is valid.
func (r TeamRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleCollaborator:
		return true
	default:
		return false
	}
}

// CanManage reports whether the role may update the team, invite, remove
// members, change roles, and manage team task assignment.
func (r TeamRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

type TeamMember struct {
	TeamID      uint64    `gorm:"primarykey" json:"team_id"`
	UserID      uint64    `gorm:"primarykey" json:"user_id"`
	Role        TeamRole  `gorm:"type:varchar(20);not null;default:'collaborator'" json:"role"`
	InvitedByID *uint64   `json:"invited_by_id,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`

	// Relations
	Team Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
