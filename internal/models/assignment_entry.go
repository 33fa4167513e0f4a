package models

import "time"

// AssignmentEntry records one assignment or unassignment of a task. The
// history is append-only: entries are never updated or removed.
type AssignmentEntry struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	TaskID       uint64     `gorm:"not null;index" json:"task_id"`
	AssigneeID   *uint64    `json:"assignee_id"`
	AssignerID   *uint64    `json:"assigner_id"`
	AssignedAt   *time.Time `json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at"`
	Note         string     `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// Relations
	Task     Task  `gorm:"foreignKey:TaskID" json:"-"`
	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Assigner *User `gorm:"foreignKey:AssignerID" json:"assigner,omitempty"`
}
