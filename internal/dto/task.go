package dto

import (
	"time"

	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/utils"
)

// TaskResponse is the public representation of a task. IsOverdue, IsDueSoon
// and AgeDays are derived at serialization time, never stored.
type TaskResponse struct {
	ID          uint64                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      models.TaskStatus     `json:"status"`
	Priority    models.TaskPriority   `json:"priority"`
	Visibility  models.TaskVisibility `json:"visibility"`
	DueDate     *time.Time            `json:"dueDate,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Creator     *UserSummary          `json:"creator,omitempty"`
	Assignee    *UserSummary          `json:"assignee,omitempty"`
	TeamID      *uint64               `json:"teamId,omitempty"`
	Archived    bool                  `json:"archived"`
	ArchivedAt  *time.Time            `json:"archivedAt,omitempty"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
	AssignedAt  *time.Time            `json:"assignedAt,omitempty"`
	IsOverdue   bool                  `json:"isOverdue"`
	IsDueSoon   bool                  `json:"isDueSoon"`
	AgeDays     int                   `json:"ageDays"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// ToTaskResponse converts a task model to its response form.
func ToTaskResponse(task *models.Task) TaskResponse {
	now := time.Now()
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Visibility:  task.Visibility,
		DueDate:     task.DueDate,
		Tags:        task.Tags,
		Creator:     ToUserSummary(&task.Creator),
		Assignee:    ToUserSummary(task.Assignee),
		TeamID:      task.TeamID,
		Archived:    task.Archived,
		ArchivedAt:  task.ArchivedAt,
		CompletedAt: task.CompletedAt,
		AssignedAt:  task.AssignedAt,
		IsOverdue:   task.IsOverdue(now),
		IsDueSoon:   task.IsDueSoon(now),
		AgeDays:     task.AgeDays(now),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// TaskListResponse is a page of tasks with its pagination envelope.
type TaskListResponse struct {
	Tasks      []TaskResponse           `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToTaskListResponse converts a page of task models to response form.
func ToTaskListResponse(tasks []models.Task, pagination utils.PaginationResponse) TaskListResponse {
	resp := TaskListResponse{
		Tasks:      make([]TaskResponse, 0, len(tasks)),
		Pagination: pagination,
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, ToTaskResponse(&tasks[i]))
	}
	return resp
}

// AssignmentEntryResponse is one row of a task's assignment history.
type AssignmentEntryResponse struct {
	ID           uint64       `json:"id"`
	Assignee     *UserSummary `json:"assignee,omitempty"`
	Assigner     *UserSummary `json:"assigner,omitempty"`
	AssignedAt   *time.Time   `json:"assignedAt,omitempty"`
	UnassignedAt *time.Time   `json:"unassignedAt,omitempty"`
	Note         string       `json:"note,omitempty"`
}

// ToAssignmentEntryResponse converts a history entry to response form.
func ToAssignmentEntryResponse(entry *models.AssignmentEntry) AssignmentEntryResponse {
	return AssignmentEntryResponse{
		ID:           entry.ID,
		Assignee:     ToUserSummary(entry.Assignee),
		Assigner:     ToUserSummary(entry.Assigner),
		AssignedAt:   entry.AssignedAt,
		UnassignedAt: entry.UnassignedAt,
		Note:         entry.Note,
	}
}
