package repository

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskhive/server/internal/database"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/utils"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a task and its initial assignment history entry atomically
func (r *GormTaskRepository) Create(task *models.Task, entry *models.AssignmentEntry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}

		if entry != nil {
			entry.TaskID = task.ID
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering, sorting, and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Where("tasks.archived = ?", filter.Archived)

	if filter.OwnerOrAssignee != nil {
		query = query.Where("tasks.creator_id = ? OR tasks.assignee_id = ?",
			*filter.OwnerOrAssignee, *filter.OwnerOrAssignee)
	}
	if filter.TeamID != nil {
		query = query.Where("tasks.team_id = ?", *filter.TeamID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(tasks.title) LIKE ?", pattern)
	}
	if filter.OverdueOnly {
		query = query.Where("tasks.status <> ? AND tasks.due_date IS NOT NULL AND tasks.due_date < ?",
			models.TaskStatusCompleted, time.Now())
	}
	if filter.DueFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order(orderClause(filter))

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func orderClause(filter TaskFilter) string {
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	switch filter.SortBy {
	case SortByDueDate:
		// NULL due dates sort last regardless of direction
		return fmt.Sprintf("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date %s", dir)
	case SortByPriority:
		return fmt.Sprintf("CASE tasks.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END %s", dir)
	case SortByTitle:
		return fmt.Sprintf("tasks.title %s", dir)
	case SortByCreatedAt:
		return fmt.Sprintf("tasks.created_at %s", dir)
	default:
		return "tasks.created_at DESC"
	}
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete hard-deletes a task and its assignment history
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.AssignmentEntry{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// AppendHistory appends an assignment history entry
func (r *GormTaskRepository) AppendHistory(entry *models.AssignmentEntry) error {
	return r.db.Create(entry).Error
}

// ListHistory lists a task's assignment history oldest first
func (r *GormTaskRepository) ListHistory(taskID uint64) ([]models.AssignmentEntry, error) {
	var entries []models.AssignmentEntry
	if err := r.db.Preload("Assignee").Preload("Assigner").
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByStatus counts non-archived tasks per stored status for an assignee,
// optionally scoped to a team.
func (r *GormTaskRepository) CountByStatus(assigneeID uint64, teamID *uint64) (map[models.TaskStatus]int64, error) {
	type row struct {
		Status models.TaskStatus
		Count  int64
	}

	query := r.db.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("assignee_id = ? AND archived = ?", assigneeID, false)
	if teamID != nil {
		query = query.Where("team_id = ?", *teamID)
	}

	var rows []row
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
