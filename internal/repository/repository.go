package repository

import (
	"time"

	"github.com/taskhive/server/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a non-deleted user by normalized email
	FindByEmail(email string) (*models.User, error)

	// FindByResetTokenHash finds a non-deleted user by reset token hash
	FindByResetTokenHash(hash string) (*models.User, error)

	// Update updates a user
	Update(user *models.User) error

	// SoftDelete flips the deleted flag and detaches the user from all
	// team member lists within a single transaction.
	SoftDelete(id uint64) error
}

// TeamRepository defines the interface for team and membership data access
type TeamRepository interface {
	// CreateWithOwner creates a team and its owner membership atomically,
	// and points the creator's current team at it.
	CreateWithOwner(team *models.Team, owner *models.TeamMember) error

	// FindByID finds a team by ID
	FindByID(id uint64) (*models.Team, error)

	// Update updates a team
	Update(team *models.Team) error

	// CountByNameForUser counts active teams with the given name among the
	// user's memberships.
	CountByNameForUser(name string, userID uint64) (int64, error)

	// FindMember finds a specific team member
	FindMember(teamID, userID uint64) (*models.TeamMember, error)

	// ListMembers lists all members of a team with user profiles
	ListMembers(teamID uint64) ([]models.TeamMember, error)

	// ListMembershipsByUser lists all teams a user is a member of
	ListMembershipsByUser(userID uint64) ([]models.TeamMember, error)

	// UpdateMemberRole changes a member's role
	UpdateMemberRole(teamID, userID uint64, role models.TeamRole) error

	// TransferOwnership demotes the current owner to admin and promotes
	// the target to owner atomically.
	TransferOwnership(teamID, ownerID, targetID uint64) error

	// RemoveMember removes a member, clears their current team if it
	// pointed here, and deactivates the team if it became empty.
	RemoveMember(teamID, userID uint64) error

	// CreateInvitation appends a pending invitation
	CreateInvitation(inv *models.Invitation) error

	// FindInvitationByID finds an invitation by ID
	FindInvitationByID(id uint64) (*models.Invitation, error)

	// FindPendingInvitation finds the pending invitation for (invitee, team)
	FindPendingInvitation(userID, teamID uint64) (*models.Invitation, error)

	// ListPendingInvitationsByUser lists the user's pending invitations
	// with team and inviter populated
	ListPendingInvitationsByUser(userID uint64) ([]models.Invitation, error)

	// UpdateInvitationStatus marks an invitation accepted or declined
	UpdateInvitationStatus(id uint64, status models.InvitationStatus) error

	// AcceptInvitation marks the invitation accepted and adds the member
	// atomically, optionally setting the invitee's current team.
	AcceptInvitation(inv *models.Invitation, member *models.TeamMember, setCurrentTeam bool) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a task together with its initial assignment history
	// entry in one transaction.
	Create(task *models.Task, entry *models.AssignmentEntry) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering, sorting, and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete hard-deletes a task and its assignment history
	Delete(id uint64) error

	// AppendHistory appends an assignment history entry
	AppendHistory(entry *models.AssignmentEntry) error

	// ListHistory lists a task's assignment history oldest first
	ListHistory(taskID uint64) ([]models.AssignmentEntry, error)

	// CountByStatus counts non-archived tasks per stored status for an assignee
	CountByStatus(assigneeID uint64, teamID *uint64) (map[models.TaskStatus]int64, error)
}

// TaskSort names an allowed sort key.
type TaskSort string

const (
	SortByCreatedAt TaskSort = "created_at"
	SortByDueDate   TaskSort = "due_date"
	SortByPriority  TaskSort = "priority"
	SortByTitle     TaskSort = "title"
)

// IsValid reports whether the sort key is in the allowlist.
func (s TaskSort) IsValid() bool {
	switch s {
	case SortByCreatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	default:
		return false
	}
}

// TaskFilter holds filtering options for listing tasks. Filters arrive from
// the client against a closed allowlist; unknown keys are rejected before a
// filter is built.
type TaskFilter struct {
	// Scope: tasks created by or assigned to this user
	OwnerOrAssignee *uint64
	// Scope: tasks belonging to this team
	TeamID *uint64
	// Scope: tasks assigned to this user
	AssigneeID *uint64

	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	Search      string // case-insensitive substring on title
	Archived    bool   // include only archived (true) or only non-archived (false)
	OverdueOnly bool   // derived predicate: not completed, due date in the past
	DueFrom     *time.Time
	DueTo       *time.Time

	SortBy   TaskSort
	SortDesc bool

	Page     int
	PageSize int
}
