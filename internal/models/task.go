package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid checks if the status is a stored status value. "overdue" is a
// derived analytics bucket and is never stored.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// Rank orders priorities for sorting: high > medium > low.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 3
	case TaskPriorityMedium:
		return 2
	case TaskPriorityLow:
		return 1
	default:
		return 0
	}
}

type TaskVisibility string

const (
	VisibilityPersonal TaskVisibility = "personal"
	VisibilityTeam     TaskVisibility = "team"
	VisibilityAssigned TaskVisibility = "assigned"
)

type Task struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Title        string         `gorm:"type:varchar(100);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Status       TaskStatus     `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	Priority     TaskPriority   `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	AssigneeID   *uint64        `gorm:"index" json:"assignee_id"`
	CreatorID    uint64         `gorm:"not null;index" json:"creator_id"`
	TeamID       *uint64        `gorm:"index" json:"team_id"`
	AssignedByID *uint64        `json:"assigned_by_id,omitempty"`
	DueDate      *time.Time     `gorm:"index" json:"due_date"`
	Tags         []string       `gorm:"serializer:json" json:"tags"`
	Archived     bool           `gorm:"not null;default:false;index" json:"archived"`
	ArchivedAt   *time.Time     `json:"archived_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	AssignedAt   *time.Time     `json:"assigned_at"`
	Visibility   TaskVisibility `gorm:"type:varchar(20);not null;default:'personal'" json:"visibility"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Relations
	Creator    User              `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee   *User             `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Team       *Team             `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	AssignedBy *User             `gorm:"foreignKey:AssignedByID" json:"assigned_by,omitempty"`
	History    []AssignmentEntry `gorm:"foreignKey:TaskID" json:"history,omitempty"`
}

// IsOverdue reports whether the task has a due date in the past and is not
// completed. Derived at read time, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// IsDueSoon reports whether the task is due within the next seven days and
// is neither completed nor already overdue.
func (t *Task) IsDueSoon(now time.Time) bool {
	if t.Status == TaskStatusCompleted || t.DueDate == nil || t.IsOverdue(now) {
		return false
	}
	return !t.DueDate.After(now.AddDate(0, 0, 7))
}

// AgeDays returns the task's age in whole days since creation.
func (t *Task) AgeDays(now time.Time) int {
	return int(now.Sub(t.CreatedAt).Hours() / 24)
}

// IsPersonal reports whether the task has no team reference.
func (t *Task) IsPersonal() bool {
	return t.TeamID == nil
}
