package dto

import (
	"time"

	"github.com/taskhive/server/internal/models"
)

// TeamResponse is the public representation of a team.
type TeamResponse struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	CreatorID   uint64               `json:"creatorId"`
	IsActive    bool                 `json:"isActive"`
	MemberCount int                  `json:"memberCount"`
	Members     []TeamMemberResponse `json:"members,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// TeamMemberResponse is one membership row within a team.
type TeamMemberResponse struct {
	UserID   uint64          `json:"userId"`
	Name     string          `json:"name"`
	Email    string          `json:"email,omitempty"`
	Role     models.TeamRole `json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// ToTeamResponse converts a team and its memberships to response form.
func ToTeamResponse(team *models.Team, members []models.TeamMember) TeamResponse {
	resp := TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		CreatorID:   team.CreatorID,
		IsActive:    team.IsActive,
		MemberCount: len(members),
		CreatedAt:   team.CreatedAt,
	}
	for _, m := range members {
		resp.Members = append(resp.Members, ToTeamMemberResponse(&m))
	}
	return resp
}

// ToTeamMemberResponse converts a membership row, tombstoning deleted users.
func ToTeamMemberResponse(member *models.TeamMember) TeamMemberResponse {
	resp := TeamMemberResponse{
		UserID:   member.UserID,
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
	if summary := ToUserSummary(&member.User); summary != nil {
		resp.Name = summary.Name
		resp.Email = summary.Email
	}
	return resp
}

// InvitationResponse is the public representation of a team invitation.
type InvitationResponse struct {
	ID        uint64                  `json:"id"`
	TeamID    uint64                  `json:"teamId"`
	TeamName  string                  `json:"teamName,omitempty"`
	Inviter   *UserSummary            `json:"inviter,omitempty"`
	Status    models.InvitationStatus `json:"status"`
	InvitedAt time.Time               `json:"invitedAt"`
}

// ToInvitationResponse converts an invitation to response form.
func ToInvitationResponse(inv *models.Invitation) InvitationResponse {
	resp := InvitationResponse{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		Status:    inv.Status,
		InvitedAt: inv.InvitedAt,
	}
	if inv.Team.ID != 0 {
		resp.TeamName = inv.Team.Name
	}
	resp.Inviter = ToUserSummary(&inv.Inviter)
	return resp
}
