package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameRequired      = errors.New("team name cannot be empty")
	ErrTeamNameTaken         = errors.New("you already have a team with this name")
	ErrNotTeamMember         = errors.New("user is not a member of this team")
	ErrMemberNotFound        = errors.New("team member not found")
	ErrAlreadyMember         = errors.New("user is already a member of this team")
	ErrInvitationExists      = errors.New("user already has a pending invitation for this team")
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrCannotRemoveOwner     = errors.New("ownership must be transferred before the owner can be removed")
	ErrCannotRemoveYourself  = errors.New("cannot remove yourself from the team; leave instead")
	ErrOwnerMustTransfer     = errors.New("transfer ownership before leaving the team")
	ErrInvalidMemberRole     = errors.New("role must be admin or collaborator")
	ErrCannotChangeOwnerRole = errors.New("the owner's role can only change through an ownership transfer")
	ErrAlreadyOwner          = errors.New("user is already the owner of this team")
)

// TeamService provides business logic for teams, memberships, and
// invitations.
type TeamService struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
}

// NewTeamService creates a new TeamService.
func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		userRepo: userRepo,
	}
}

// CreateTeamInput represents parameters to create a new team.
type CreateTeamInput struct {
	Name        string
	Description string
	CreatorID   uint64
}

// CreateTeam creates a team whose sole member is the caller with role
// owner, and makes it the caller's current team.
func (s *TeamService) CreateTeam(input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	count, err := s.teamRepo.CountByNameForUser(name, input.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check team name: %w", err)
	}
	if count > 0 {
		return nil, ErrTeamNameTaken
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatorID:   input.CreatorID,
		IsActive:    true,
	}

	owner := &models.TeamMember{
		UserID:   input.CreatorID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.teamRepo.CreateWithOwner(team, owner); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// ListTeamsForUser returns the memberships (with teams) of a user.
func (s *TeamService) ListTeamsForUser(userID uint64) ([]models.TeamMember, error) {
	memberships, err := s.teamRepo.ListMembershipsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return memberships, nil
}

// GetTeamWithMembers returns a team and its members with profiles.
func (s *TeamService) GetTeamWithMembers(teamID uint64) (*models.Team, []models.TeamMember, error) {
	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTeamNotFound
		}
		return nil, nil, fmt.Errorf("failed to find team: %w", err)
	}

	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return team, members, nil
}

// UpdateTeamInput holds the mutable team fields.
type UpdateTeamInput struct {
	Name        *string
	Description *string
}

// UpdateTeam updates a team's name and description.
func (s *TeamService) UpdateTeam(teamID uint64, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTeamNameRequired
		}
		team.Name = name
	}
	if input.Description != nil {
		team.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.teamRepo.Update(team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	return team, nil
}

// InviteByEmail appends a pending invitation to the user who owns the
// email. The target must not already be a member or hold a pending
// invitation for this team.
func (s *TeamService) InviteByEmail(teamID, inviterID uint64, email string) (*models.Invitation, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	target, err := s.userRepo.FindByEmail(normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.teamRepo.FindMember(teamID, target.ID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if _, err := s.teamRepo.FindPendingInvitation(target.ID, teamID); err == nil {
		return nil, ErrInvitationExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check invitations: %w", err)
	}

	inv := &models.Invitation{
		UserID:    target.ID,
		TeamID:    teamID,
		InviterID: inviterID,
		Status:    models.InvitationStatusPending,
		InvitedAt: time.Now(),
	}

	if err := s.teamRepo.CreateInvitation(inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return inv, nil
}

// ListInvitations returns the caller's pending invitations with team and
// inviter populated.
func (s *TeamService) ListInvitations(userID uint64) ([]models.Invitation, error) {
	invitations, err := s.teamRepo.ListPendingInvitationsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// AcceptInvitation adds the invitee to the team as a collaborator and marks
// the invitation accepted, atomically. If the invitee has no current team,
// this one becomes it.
func (s *TeamService) AcceptInvitation(userID, invitationID uint64) (*models.Team, error) {
	inv, err := s.findOwnPendingInvitation(userID, invitationID)
	if err != nil {
		return nil, err
	}

	team, err := s.teamRepo.FindByID(inv.TeamID)
	if err != nil || !team.IsActive {
		return nil, ErrInvitationNotFound
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	member := &models.TeamMember{
		TeamID:      inv.TeamID,
		UserID:      userID,
		Role:        models.RoleCollaborator,
		InvitedByID: &inv.InviterID,
		JoinedAt:    time.Now(),
	}

	setCurrentTeam := user.CurrentTeamID == nil
	if err := s.teamRepo.AcceptInvitation(inv, member, setCurrentTeam); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	return team, nil
}

// DeclineInvitation marks the invitation declined. No team mutation.
func (s *TeamService) DeclineInvitation(userID, invitationID uint64) error {
	inv, err := s.findOwnPendingInvitation(userID, invitationID)
	if err != nil {
		return err
	}

	if err := s.teamRepo.UpdateInvitationStatus(inv.ID, models.InvitationStatusDeclined); err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}
	return nil
}

func (s *TeamService) findOwnPendingInvitation(userID, invitationID uint64) (*models.Invitation, error) {
	inv, err := s.teamRepo.FindInvitationByID(invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	if inv.UserID != userID || !inv.IsPending() {
		return nil, ErrInvitationNotFound
	}

	return inv, nil
}

// RemoveMember removes the target from the team. The owner cannot be
// removed; ownership transfers first.
func (s *TeamService) RemoveMember(teamID, actorID, targetID uint64) error {
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	target, err := s.teamRepo.FindMember(teamID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find team member: %w", err)
	}

	if target.Role == models.RoleOwner {
		return ErrCannotRemoveOwner
	}

	if err := s.teamRepo.RemoveMember(teamID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// LeaveTeam removes the caller from the team. The owner must transfer
// ownership first unless they are the last member, in which case the team
// empties and is marked inactive.
func (s *TeamService) LeaveTeam(teamID, userID uint64) error {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to find team member: %w", err)
	}

	if member.Role == models.RoleOwner {
		members, err := s.teamRepo.ListMembers(teamID)
		if err != nil {
			return fmt.Errorf("failed to list team members: %w", err)
		}
		if len(members) > 1 {
			return ErrOwnerMustTransfer
		}
	}

	if err := s.teamRepo.RemoveMember(teamID, userID); err != nil {
		return fmt.Errorf("failed to leave team: %w", err)
	}
	return nil
}

// ChangeMemberRole sets a member's role to admin or collaborator. The owner
// slot only changes through TransferOwnership.
func (s *TeamService) ChangeMemberRole(teamID, targetID uint64, role models.TeamRole) error {
	if role != models.RoleAdmin && role != models.RoleCollaborator {
		return ErrInvalidMemberRole
	}

	target, err := s.teamRepo.FindMember(teamID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find team member: %w", err)
	}

	if target.Role == models.RoleOwner {
		return ErrCannotChangeOwnerRole
	}

	if err := s.teamRepo.UpdateMemberRole(teamID, targetID, role); err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}
	return nil
}

// TransferOwnership atomically demotes the current owner to admin and
// promotes the target to owner. This is the only transition that mutates an
// owner slot.
func (s *TeamService) TransferOwnership(teamID, ownerID, targetID uint64) error {
	target, err := s.teamRepo.FindMember(teamID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find team member: %w", err)
	}

	if target.Role == models.RoleOwner {
		return ErrAlreadyOwner
	}

	if err := s.teamRepo.TransferOwnership(teamID, ownerID, targetID); err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	return nil
}
