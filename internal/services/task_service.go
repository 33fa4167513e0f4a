package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskhive/server/internal/constants"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleTooLong         = errors.New("title must be at most 100 characters")
	ErrDescriptionTooLong   = errors.New("description must be at most 1000 characters")
	ErrInvalidStatus        = errors.New("invalid task status")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrDueDateInPast        = errors.New("due date cannot be in the past")
	ErrTaskPermissionDenied = errors.New("you do not have permission to modify this task")
	ErrNotTeamTask          = errors.New("assignment operations require a team task")
	ErrAssigneeNotMember    = errors.New("assignee is not a member of the team")
	ErrInvalidFilter        = errors.New("unknown filter key")
	ErrInvalidSort          = errors.New("unknown sort key")
)

// TaskService handles task lifecycle and assignment business logic.
type TaskService struct {
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		teamRepo: teamRepo,
	}
}

// taskPreloads are the relations loaded for single-task responses.
var taskPreloads = []string{"Creator", "Assignee", "Team", "History"}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	AssigneeID  *uint64
	TeamID      *uint64
	CreatorID   uint64
}

// CreateTask creates a task with the caller as creator and an initial
// assignment history entry. Personal tasks default the assignee to the
// caller; team tasks require the caller to manage the team and the assignee
// to belong to it.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if err := validateTaskFields(input.Title, input.Description); err != nil {
		return nil, err
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	if input.DueDate != nil && beforeToday(*input.DueDate) {
		return nil, ErrDueDateInPast
	}

	visibility := models.VisibilityPersonal
	assigneeID := input.AssigneeID

	if input.TeamID != nil {
		role, err := s.memberRole(*input.TeamID, input.CreatorID)
		if err != nil {
			return nil, err
		}
		if !role.CanManage() {
			return nil, ErrTaskPermissionDenied
		}

		if assigneeID != nil && *assigneeID != input.CreatorID {
			if _, err := s.teamRepo.FindMember(*input.TeamID, *assigneeID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrAssigneeNotMember
				}
				return nil, fmt.Errorf("failed to verify assignee: %w", err)
			}
		}
		visibility = models.VisibilityTeam
	}

	if assigneeID == nil {
		assigneeID = &input.CreatorID
	}

	now := time.Now()
	task := &models.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		Tags:        input.Tags,
		AssigneeID:  assigneeID,
		CreatorID:   input.CreatorID,
		TeamID:      input.TeamID,
		AssignedAt:  &now,
		Visibility:  visibility,
	}
	if task.Status == models.TaskStatusCompleted {
		task.CompletedAt = &now
	}

	entry := &models.AssignmentEntry{
		AssigneeID: assigneeID,
		AssignerID: &input.CreatorID,
		AssignedAt: &now,
	}

	if err := s.taskRepo.Create(task, entry); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// GetTask returns a task with related data after an access check.
func (s *TaskService) GetTask(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !s.canRead(task, actorID) {
		// Hidden resources look absent
		return nil, ErrTaskNotFound
	}

	return s.taskRepo.FindByID(taskID, taskPreloads...)
}

// UpdateTaskInput represents a partial task update.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	DueDate     *time.Time
	Tags        *[]string
}

// UpdateTask updates mutable task fields. completedAt is set exactly when
// the status becomes completed and cleared when it leaves that state.
func (s *TaskService) UpdateTask(taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !s.canModify(task, actorID) {
		return nil, ErrTaskPermissionDenied
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if len(title) > constants.MaxTitleLength {
			return nil, ErrTitleTooLong
		}
		task.Title = title
	}
	if input.Description != nil {
		if len(*input.Description) > constants.MaxDescriptionLength {
			return nil, ErrDescriptionTooLong
		}
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		// Same day-granularity floor as creation, relaxed to the task's
		// creation day so long-lived tasks can keep an overdue due date.
		if beforeToday(*input.DueDate) && beforeDay(*input.DueDate, task.CreatedAt) {
			return nil, ErrDueDateInPast
		}
		task.DueDate = input.DueDate
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		applyStatus(task, *input.Status)
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

func applyStatus(task *models.Task, status models.TaskStatus) {
	if task.Status == status {
		return
	}
	task.Status = status
	if status == models.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
}

// DeleteTask hard-deletes a task. Permitted to the creator, and to team
// admins and owners for team tasks.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.findTask(taskID)
	if err != nil {
		return err
	}

	if task.CreatorID != actorID {
		if task.IsPersonal() {
			return ErrTaskPermissionDenied
		}
		role, err := s.memberRole(*task.TeamID, actorID)
		if err != nil || !role.CanManage() {
			return ErrTaskPermissionDenied
		}
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ToggleArchive flips the archived flag; archivedAt tracks the flip.
func (s *TaskService) ToggleArchive(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !s.canModify(task, actorID) {
		return nil, ErrTaskPermissionDenied
	}

	task.Archived = !task.Archived
	if task.Archived {
		now := time.Now()
		task.ArchivedAt = &now
	} else {
		task.ArchivedAt = nil
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to archive task: %w", err)
	}

	return task, nil
}

// AssignInput represents input for assignment operations.
type AssignInput struct {
	TaskID   uint64
	ActorID  uint64
	MemberID uint64
	Note     string
}

// Assign sets the assignee on a team task and appends a history entry.
// Only admins and owners of the task's team may assign.
func (s *TaskService) Assign(input AssignInput) (*models.Task, error) {
	task, err := s.teamTaskForAssignment(input.TaskID, input.ActorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.teamRepo.FindMember(*task.TeamID, input.MemberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotMember
		}
		return nil, fmt.Errorf("failed to verify member: %w", err)
	}

	now := time.Now()
	task.AssigneeID = &input.MemberID
	task.AssignedByID = &input.ActorID
	task.AssignedAt = &now

	entry := &models.AssignmentEntry{
		TaskID:     task.ID,
		AssigneeID: &input.MemberID,
		AssignerID: &input.ActorID,
		AssignedAt: &now,
		Note:       input.Note,
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	if err := s.taskRepo.AppendHistory(entry); err != nil {
		return nil, fmt.Errorf("failed to record assignment: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// Unassign clears the assignee on a team task and appends a history entry
// marking the unassignment time.
func (s *TaskService) Unassign(taskID, actorID uint64, note string) (*models.Task, error) {
	task, err := s.teamTaskForAssignment(taskID, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &models.AssignmentEntry{
		TaskID:       task.ID,
		AssigneeID:   task.AssigneeID,
		AssignerID:   &actorID,
		UnassignedAt: &now,
		Note:         note,
	}

	task.AssigneeID = nil
	task.AssignedByID = nil
	task.AssignedAt = nil

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to unassign task: %w", err)
	}
	if err := s.taskRepo.AppendHistory(entry); err != nil {
		return nil, fmt.Errorf("failed to record unassignment: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// Reassign records an unassignment entry for the previous assignee, if any,
// then assigns the new member. The target is validated up front so a failed
// reassign writes no history.
func (s *TaskService) Reassign(input AssignInput) (*models.Task, error) {
	task, err := s.teamTaskForAssignment(input.TaskID, input.ActorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.teamRepo.FindMember(*task.TeamID, input.MemberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotMember
		}
		return nil, fmt.Errorf("failed to verify member: %w", err)
	}

	if task.AssigneeID != nil {
		now := time.Now()
		entry := &models.AssignmentEntry{
			TaskID:       task.ID,
			AssigneeID:   task.AssigneeID,
			AssignerID:   &input.ActorID,
			UnassignedAt: &now,
			Note:         input.Note,
		}
		if err := s.taskRepo.AppendHistory(entry); err != nil {
			return nil, fmt.Errorf("failed to record unassignment: %w", err)
		}
	}

	return s.Assign(input)
}

// ListHistory returns a task's assignment history after an access check.
func (s *TaskService) ListHistory(taskID, actorID uint64) ([]models.AssignmentEntry, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}
	if !s.canRead(task, actorID) {
		return nil, ErrTaskNotFound
	}

	return s.taskRepo.ListHistory(taskID)
}

// ListTasks retrieves tasks matching the filter. For team scopes the caller
// must be a member of the team.
func (s *TaskService) ListTasks(actorID uint64, filter repository.TaskFilter) ([]models.Task, int64, error) {
	if filter.TeamID != nil {
		if _, err := s.memberRole(*filter.TeamID, actorID); err != nil {
			return nil, 0, err
		}
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *TaskService) findTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// canRead: personal tasks are visible to creator and assignee; team tasks
// to any member of the team.
func (s *TaskService) canRead(task *models.Task, actorID uint64) bool {
	if task.CreatorID == actorID {
		return true
	}
	if task.AssigneeID != nil && *task.AssigneeID == actorID {
		return true
	}
	if task.TeamID != nil {
		if _, err := s.teamRepo.FindMember(*task.TeamID, actorID); err == nil {
			return true
		}
	}
	return false
}

// canModify: personal tasks by creator or assignee; team tasks additionally
// by team admins and owners.
func (s *TaskService) canModify(task *models.Task, actorID uint64) bool {
	if task.CreatorID == actorID {
		return true
	}
	if task.AssigneeID != nil && *task.AssigneeID == actorID {
		return true
	}
	if task.TeamID != nil {
		if role, err := s.memberRole(*task.TeamID, actorID); err == nil && role.CanManage() {
			return true
		}
	}
	return false
}

func (s *TaskService) teamTaskForAssignment(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if task.IsPersonal() {
		return nil, ErrNotTeamTask
	}

	role, err := s.memberRole(*task.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.CanManage() {
		return nil, ErrTaskPermissionDenied
	}

	return task, nil
}

func (s *TaskService) memberRole(teamID, userID uint64) (models.TeamRole, error) {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotTeamMember
		}
		return "", fmt.Errorf("failed to verify team membership: %w", err)
	}
	return member.Role, nil
}

func validateTaskFields(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if len(title) > constants.MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(description) > constants.MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// beforeToday compares at day granularity in local time.
func beforeToday(t time.Time) bool {
	return beforeDay(t, time.Now())
}

// beforeDay reports whether t falls before the calendar day containing ref.
func beforeDay(t, ref time.Time) bool {
	startOfDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return t.Before(startOfDay)
}
