package repository

import (
	"github.com/taskhive/server/internal/models"
	"gorm.io/gorm"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// CreateWithOwner creates a team, the owner membership, and points the
// creator's current team at it, atomically.
func (r *GormTeamRepository) CreateWithOwner(team *models.Team, owner *models.TeamMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		owner.TeamID = team.ID
		if err := tx.Create(owner).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", owner.UserID).
			Update("current_team_id", team.ID).Error
	})
}

// FindByID finds a team by ID
func (r *GormTeamRepository) FindByID(id uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// Update updates a team
func (r *GormTeamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

// CountByNameForUser counts active teams with the given name among the
// user's memberships.
func (r *GormTeamRepository) CountByNameForUser(name string, userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Team{}).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ? AND teams.name = ? AND teams.is_active = ?", userID, name, true).
		Count(&count).Error
	return count, err
}

// FindMember finds a specific team member
func (r *GormTeamRepository) FindMember(teamID, userID uint64) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a team with user profiles
func (r *GormTeamRepository) ListMembers(teamID uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.Preload("User").
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembershipsByUser lists all teams a user is a member of
func (r *GormTeamRepository) ListMembershipsByUser(userID uint64) ([]models.TeamMember, error) {
	var memberships []models.TeamMember
	if err := r.db.Preload("Team").
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// UpdateMemberRole changes a member's role
func (r *GormTeamRepository) UpdateMemberRole(teamID, userID uint64, role models.TeamRole) error {
	return r.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role).Error
}

// TransferOwnership swaps the owner slot: the current owner becomes admin,
// the target becomes owner. Both writes commit or neither does, so the team
// never observes zero or two owners.
func (r *GormTeamRepository) TransferOwnership(teamID, ownerID, targetID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ? AND role = ?", teamID, ownerID, models.RoleOwner).
			Update("role", models.RoleAdmin).Error; err != nil {
			return err
		}

		return tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, targetID).
			Update("role", models.RoleOwner).Error
	})
}

// RemoveMember removes a member, clears their current team if it pointed
// here, and deactivates the team if it became empty.
func (r *GormTeamRepository) RemoveMember(teamID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).
			Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ? AND current_team_id = ?", userID, teamID).
			Update("current_team_id", nil).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.TeamMember{}).
			Where("team_id = ?", teamID).
			Count(&remaining).Error; err != nil {
			return err
		}

		if remaining == 0 {
			return tx.Model(&models.Team{}).Where("id = ?", teamID).
				Update("is_active", false).Error
		}
		return nil
	})
}

// CreateInvitation appends a pending invitation
func (r *GormTeamRepository) CreateInvitation(inv *models.Invitation) error {
	return r.db.Create(inv).Error
}

// FindInvitationByID finds an invitation by ID
func (r *GormTeamRepository) FindInvitationByID(id uint64) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindPendingInvitation finds the pending invitation for (invitee, team)
func (r *GormTeamRepository) FindPendingInvitation(userID, teamID uint64) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.Where("user_id = ? AND team_id = ? AND status = ?",
		userID, teamID, models.InvitationStatusPending).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListPendingInvitationsByUser lists the user's pending invitations with
// team and inviter populated
func (r *GormTeamRepository) ListPendingInvitationsByUser(userID uint64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := r.db.Preload("Team").Preload("Inviter").
		Where("user_id = ? AND status = ?", userID, models.InvitationStatusPending).
		Order("invited_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// UpdateInvitationStatus marks an invitation accepted or declined
func (r *GormTeamRepository) UpdateInvitationStatus(id uint64, status models.InvitationStatus) error {
	return r.db.Model(&models.Invitation{}).Where("id = ?", id).
		Update("status", status).Error
}

// AcceptInvitation marks the invitation accepted and adds the member in one
// transaction, optionally setting the invitee's current team.
func (r *GormTeamRepository) AcceptInvitation(inv *models.Invitation, member *models.TeamMember, setCurrentTeam bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Invitation{}).Where("id = ?", inv.ID).
			Update("status", models.InvitationStatusAccepted).Error; err != nil {
			return err
		}

		if err := tx.Create(member).Error; err != nil {
			return err
		}

		if setCurrentTeam {
			return tx.Model(&models.User{}).Where("id = ?", member.UserID).
				Update("current_team_id", member.TeamID).Error
		}
		return nil
	})
}
