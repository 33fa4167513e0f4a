package handlers

import (
	goerrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/server/internal/dto"
	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/logger"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/services"
)

// TeamHandler handles team and invitation endpoints.
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Create handles POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Team name is required")
		return
	}

	team, err := h.teamService.CreateTeam(services.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   middleware.GetUserID(c),
	})
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrTeamNameRequired):
			errors.BadRequest(c, err.Error())
		case goerrors.Is(err, services.ErrTeamNameTaken):
			errors.Conflict(c, "You already belong to a team with this name")
		default:
			logger.Error().Err(err).Msg("Failed to create team")
			errors.InternalError(c, "Failed to create team")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"team": dto.ToTeamResponse(team, nil)})
}

// List handles GET /api/teams — the caller's teams with their role in each.
func (h *TeamHandler) List(c *gin.Context) {
	memberships, err := h.teamService.ListTeamsForUser(middleware.GetUserID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list teams")
		errors.InternalError(c, "Failed to list teams")
		return
	}

	type teamWithRole struct {
		dto.TeamResponse
		MyRole models.TeamRole `json:"myRole"`
	}
	teams := make([]teamWithRole, 0, len(memberships))
	for _, m := range memberships {
		teams = append(teams, teamWithRole{
			TeamResponse: dto.ToTeamResponse(&m.Team, nil),
			MyRole:       m.Role,
		})
	}

	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// Get handles GET /api/teams/:id. Runs behind RequireTeamAccess.
func (h *TeamHandler) Get(c *gin.Context) {
	team := middleware.GetTeam(c)

	_, members, err := h.teamService.GetTeamWithMembers(team.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load team")
		errors.InternalError(c, "Failed to load team")
		return
	}

	c.JSON(http.StatusOK, gin.H{"team": dto.ToTeamResponse(team, members)})
}

// Update handles PUT /api/teams/:id. Runs behind RequireTeamRole.
func (h *TeamHandler) Update(c *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request body")
		return
	}

	team, err := h.teamService.UpdateTeam(middleware.GetTeam(c).ID, services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrTeamNameRequired):
			errors.BadRequest(c, err.Error())
		default:
			logger.Error().Err(err).Msg("Failed to update team")
			errors.InternalError(c, "Failed to update team")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"team": dto.ToTeamResponse(team, nil)})
}

// Invite handles POST /api/teams/:id/invite. Runs behind RequireTeamRole.
// Invitees always join as collaborators, so a role in the body is ignored.
func (h *TeamHandler) Invite(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Email is required")
		return
	}

	inv, err := h.teamService.InviteByEmail(middleware.GetTeam(c).ID, middleware.GetUserID(c), req.Email)
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrUserNotFound):
			errors.NotFound(c, "No user with this email")
		case goerrors.Is(err, services.ErrAlreadyMember):
			errors.Conflict(c, "User is already a member of this team")
		case goerrors.Is(err, services.ErrInvitationExists):
			errors.Conflict(c, "User already has a pending invitation")
		default:
			logger.Error().Err(err).Msg("Failed to create invitation")
			errors.InternalError(c, "Failed to create invitation")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invitation": dto.ToInvitationResponse(inv)})
}

// ListInvitations handles GET /api/teams/invitations — the caller's pending
// ones.
func (h *TeamHandler) ListInvitations(c *gin.Context) {
	invites, err := h.teamService.ListInvitations(middleware.GetUserID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list invitations")
		errors.InternalError(c, "Failed to list invitations")
		return
	}

	resp := make([]dto.InvitationResponse, 0, len(invites))
	for i := range invites {
		resp = append(resp, dto.ToInvitationResponse(&invites[i]))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": resp})
}

// AcceptInvitation handles POST /api/teams/invitations/:invitationId/accept
func (h *TeamHandler) AcceptInvitation(c *gin.Context) {
	invID, err := strconv.ParseUint(c.Param("invitationId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid invitation ID")
		return
	}

	team, err := h.teamService.AcceptInvitation(middleware.GetUserID(c), invID)
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrInvitationNotFound):
			errors.NotFound(c, "Invitation not found")
		case goerrors.Is(err, services.ErrAlreadyMember):
			errors.Conflict(c, "You are already a member of this team")
		default:
			logger.Error().Err(err).Msg("Failed to accept invitation")
			errors.InternalError(c, "Failed to accept invitation")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"team": dto.ToTeamResponse(team, nil)})
}

// DeclineInvitation handles POST /api/teams/invitations/:invitationId/decline
func (h *TeamHandler) DeclineInvitation(c *gin.Context) {
	invID, err := strconv.ParseUint(c.Param("invitationId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid invitation ID")
		return
	}

	if err := h.teamService.DeclineInvitation(middleware.GetUserID(c), invID); err != nil {
		if goerrors.Is(err, services.ErrInvitationNotFound) {
			errors.NotFound(c, "Invitation not found")
			return
		}
		logger.Error().Err(err).Msg("Failed to decline invitation")
		errors.InternalError(c, "Failed to decline invitation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation declined"})
}

// RemoveMember handles DELETE /api/teams/:id/members/:memberId. Runs behind
// RequireTeamRole.
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("memberId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid member ID")
		return
	}

	err = h.teamService.RemoveMember(middleware.GetTeam(c).ID, middleware.GetUserID(c), targetID)
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrMemberNotFound):
			errors.NotFound(c, "Member not found")
		case goerrors.Is(err, services.ErrCannotRemoveOwner):
			errors.Forbidden(c, "The team owner cannot be removed")
		case goerrors.Is(err, services.ErrCannotRemoveYourself):
			errors.BadRequest(c, "Use the leave endpoint to leave the team")
		default:
			logger.Error().Err(err).Msg("Failed to remove member")
			errors.InternalError(c, "Failed to remove member")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// Leave handles POST /api/teams/:id/leave. Runs behind RequireTeamAccess.
func (h *TeamHandler) Leave(c *gin.Context) {
	err := h.teamService.LeaveTeam(middleware.GetTeam(c).ID, middleware.GetUserID(c))
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrOwnerMustTransfer):
			errors.Conflict(c, "Transfer ownership before leaving the team")
		case goerrors.Is(err, services.ErrMemberNotFound):
			errors.NotFound(c, "Member not found")
		default:
			logger.Error().Err(err).Msg("Failed to leave team")
			errors.InternalError(c, "Failed to leave team")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left the team"})
}

// ChangeMemberRole handles PUT /api/teams/:id/members/:memberId/role. Runs
// behind RequireTeamRole.
func (h *TeamHandler) ChangeMemberRole(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("memberId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid member ID")
		return
	}

	var req struct {
		Role models.TeamRole `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Role is required")
		return
	}

	err = h.teamService.ChangeMemberRole(middleware.GetTeam(c).ID, targetID, req.Role)
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrInvalidMemberRole):
			errors.BadRequest(c, "Role must be admin or collaborator")
		case goerrors.Is(err, services.ErrCannotChangeOwnerRole):
			errors.Forbidden(c, "The owner role can only change through an ownership transfer")
		case goerrors.Is(err, services.ErrMemberNotFound):
			errors.NotFound(c, "Member not found")
		default:
			logger.Error().Err(err).Msg("Failed to change member role")
			errors.InternalError(c, "Failed to change member role")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

// TransferOwnership handles PUT /api/teams/:id/transfer-ownership/:memberId.
// Runs behind the owner-only role gate.
func (h *TeamHandler) TransferOwnership(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("memberId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid member ID")
		return
	}

	err = h.teamService.TransferOwnership(middleware.GetTeam(c).ID, middleware.GetUserID(c), targetID)
	if err != nil {
		switch {
		case goerrors.Is(err, services.ErrMemberNotFound):
			errors.NotFound(c, "Member not found")
		case goerrors.Is(err, services.ErrAlreadyOwner):
			errors.Conflict(c, "User already owns this team")
		default:
			logger.Error().Err(err).Msg("Failed to transfer ownership")
			errors.InternalError(c, "Failed to transfer ownership")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ownership transferred"})
}
