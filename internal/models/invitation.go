package models

import "time"

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)

// Invitation is a pending, accepted, or declined offer of team membership,
// addressed to the invitee user. At most one pending invitation exists per
// (invitee, team) pair.
type Invitation struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	TeamID    uint64           `gorm:"not null;index" json:"team_id"`
	InviterID uint64           `gorm:"not null" json:"inviter_id"`
	Status    InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	InvitedAt time.Time        `json:"invited_at"`

	// Relations
	User    User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Team    Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Inviter User `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
}

// IsPending reports whether the invitation can still be accepted or declined.
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationStatusPending
}
