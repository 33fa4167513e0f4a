package handlers

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/server/internal/dto"
	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/logger"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
	"github.com/taskhive/server/internal/services"
	"github.com/taskhive/server/internal/utils"
)

// TaskHandler handles task CRUD, listing and assignment endpoints.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// allowedListParams is the closed set of list query keys. Anything else is
// rejected rather than silently ignored.
var allowedListParams = map[string]bool{
	"status":     true,
	"priority":   true,
	"search":     true,
	"overdue":    true,
	"assigneeId": true,
	"teamId":     true,
	"dueFrom":    true,
	"dueTo":      true,
	"sortBy":     true,
	"sortOrder":  true,
	"page":       true,
	"limit":      true,
}

// List handles GET /api/tasks — the caller's active tasks.
func (h *TaskHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	filter, params, ok := h.buildFilter(c)
	if !ok {
		return
	}
	filter.OwnerOrAssignee = &userID

	h.respondList(c, userID, filter, params)
}

// ListArchived handles GET /api/tasks/archived
func (h *TaskHandler) ListArchived(c *gin.Context) {
	userID := middleware.GetUserID(c)
	filter, params, ok := h.buildFilter(c)
	if !ok {
		return
	}
	filter.OwnerOrAssignee = &userID
	filter.Archived = true

	h.respondList(c, userID, filter, params)
}

// ListAssigned handles GET /api/tasks/assigned/me — tasks assigned to the
// caller.
func (h *TaskHandler) ListAssigned(c *gin.Context) {
	userID := middleware.GetUserID(c)
	filter, params, ok := h.buildFilter(c)
	if !ok {
		return
	}
	filter.AssigneeID = &userID

	h.respondList(c, userID, filter, params)
}

// ListTeam handles GET /api/tasks/team/:teamId
func (h *TaskHandler) ListTeam(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("teamId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid team ID")
		return
	}

	userID := middleware.GetUserID(c)
	filter, params, ok := h.buildFilter(c)
	if !ok {
		return
	}
	filter.TeamID = &teamID

	h.respondList(c, userID, filter, params)
}

func (h *TaskHandler) respondList(c *gin.Context, userID uint64, filter repository.TaskFilter, params utils.PaginationParams) {
	tasks, total, err := h.taskService.ListTasks(userID, filter)
	if err != nil {
		if goerrors.Is(err, services.ErrNotTeamMember) {
			// Foreign teams read as absent
			errors.NotFound(c, "Team not found")
			return
		}
		logger.Error().Err(err).Msg("Failed to list tasks")
		errors.InternalError(c, "Failed to list tasks")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, utils.NewPaginationResponse(params, total)))
}

// buildFilter parses and validates list query parameters. On failure it has
// already written the 400 response.
func (h *TaskHandler) buildFilter(c *gin.Context) (repository.TaskFilter, utils.PaginationParams, bool) {
	var filter repository.TaskFilter
	var params utils.PaginationParams

	for key := range c.Request.URL.Query() {
		if !allowedListParams[key] {
			errors.BadRequest(c, fmt.Sprintf("Unknown query parameter: %s", key))
			return filter, params, false
		}
	}

	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.IsValid() {
			errors.BadRequest(c, "Status must be todo, in-progress or completed")
			return filter, params, false
		}
		filter.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.IsValid() {
			errors.BadRequest(c, "Priority must be low, medium or high")
			return filter, params, false
		}
		filter.Priority = &priority
	}
	filter.Search = c.Query("search")
	filter.OverdueOnly = c.Query("overdue") == "true"

	if v := c.Query("assigneeId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errors.BadRequest(c, "assigneeId must be numeric")
			return filter, params, false
		}
		filter.AssigneeID = &id
	}
	if v := c.Query("teamId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errors.BadRequest(c, "teamId must be numeric")
			return filter, params, false
		}
		filter.TeamID = &id
	}

	if v := c.Query("dueFrom"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			errors.BadRequest(c, "dueFrom must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return filter, params, false
		}
		filter.DueFrom = &t
	}
	if v := c.Query("dueTo"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			errors.BadRequest(c, "dueTo must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return filter, params, false
		}
		filter.DueTo = &t
	}

	if v := c.Query("sortBy"); v != "" {
		sort := repository.TaskSort(v)
		if !sort.IsValid() {
			errors.BadRequest(c, "sortBy must be one of created_at, due_date, priority, title")
			return filter, params, false
		}
		filter.SortBy = sort
	}
	switch c.Query("sortOrder") {
	case "", "desc":
		filter.SortDesc = true
	case "asc":
		filter.SortDesc = false
	default:
		errors.BadRequest(c, "sortOrder must be asc or desc")
		return filter, params, false
	}

	params = utils.GetPaginationParams(c)
	filter.Page = params.Page
	filter.PageSize = params.Limit

	return filter, params, true
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	h.create(c, nil)
}

// CreateInTeam handles POST /api/tasks/team/:teamId
func (h *TaskHandler) CreateInTeam(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("teamId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid team ID")
		return
	}
	h.create(c, &teamID)
}

func (h *TaskHandler) create(c *gin.Context, teamID *uint64) {
	var req struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Status      string   `json:"status"`
		Priority    string   `json:"priority"`
		DueDate     string   `json:"dueDate" binding:"required"`
		Tags        []string `json:"tags"`
		AssigneeID  *uint64  `json:"assigneeId"`
		TeamID      *uint64  `json:"teamId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Title and due date are required")
		return
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		errors.BadRequest(c, "Due date must be an RFC 3339 timestamp or YYYY-MM-DD date")
		return
	}

	// The path team wins over a team named in the body.
	if teamID == nil {
		teamID = req.TeamID
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.TaskPriority(req.Priority),
		DueDate:     &dueDate,
		Tags:        req.Tags,
		AssigneeID:  req.AssigneeID,
		TeamID:      teamID,
		CreatorID:   middleware.GetUserID(c),
	})
	if err != nil {
		h.respondTaskError(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": dto.ToTaskResponse(task)})
}

// Get handles GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(taskID, middleware.GetUserID(c))
	if err != nil {
		h.respondTaskError(c, err, "Failed to load task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": dto.ToTaskResponse(task)})
}

// Update handles PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	var req struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Status      *string   `json:"status"`
		Priority    *string   `json:"priority"`
		DueDate     *string   `json:"dueDate"`
		Tags        *[]string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			errors.BadRequest(c, "Due date must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return
		}
		input.DueDate = &dueDate
	}

	task, err := h.taskService.UpdateTask(taskID, middleware.GetUserID(c), input)
	if err != nil {
		h.respondTaskError(c, err, "Failed to update task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": dto.ToTaskResponse(task)})
}

// Delete handles DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(taskID, middleware.GetUserID(c)); err != nil {
		h.respondTaskError(c, err, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// ToggleArchive handles PUT /api/tasks/:id/archive
func (h *TaskHandler) ToggleArchive(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.ToggleArchive(taskID, middleware.GetUserID(c))
	if err != nil {
		h.respondTaskError(c, err, "Failed to archive task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": dto.ToTaskResponse(task)})
}

// Assign handles POST /api/tasks/:id/assign
func (h *TaskHandler) Assign(c *gin.Context) {
	var req struct {
		MemberID uint64 `json:"memberId" binding:"required"`
		// teamId is accepted from older clients; the task already
		// names its team.
		TeamID *uint64 `json:"teamId"`
		Note   string  `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Member ID is required")
		return
	}

	h.assign(c, h.taskService.Assign, req.MemberID, req.Note)
}

// Reassign handles POST /api/tasks/:id/reassign
func (h *TaskHandler) Reassign(c *gin.Context) {
	var req struct {
		NewMemberID uint64 `json:"newMemberId" binding:"required"`
		Note        string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "New member ID is required")
		return
	}

	h.assign(c, h.taskService.Reassign, req.NewMemberID, req.Note)
}

func (h *TaskHandler) assign(c *gin.Context, op func(services.AssignInput) (*models.Task, error), memberID uint64, note string) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := op(services.AssignInput{
		TaskID:   taskID,
		ActorID:  middleware.GetUserID(c),
		MemberID: memberID,
		Note:     note,
	})
	if err != nil {
		h.respondTaskError(c, err, "Failed to assign task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": dto.ToTaskResponse(task)})
}

// Unassign handles POST /api/tasks/:id/unassign
func (h *TaskHandler) Unassign(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	// Body is optional
	_ = c.ShouldBindJSON(&req)

	task, err := h.taskService.Unassign(taskID, middleware.GetUserID(c), req.Note)
	if err != nil {
		h.respondTaskError(c, err, "Failed to unassign task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": dto.ToTaskResponse(task)})
}

// History handles GET /api/tasks/:id/history
func (h *TaskHandler) History(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	entries, err := h.taskService.ListHistory(taskID, middleware.GetUserID(c))
	if err != nil {
		h.respondTaskError(c, err, "Failed to load task history")
		return
	}

	resp := make([]dto.AssignmentEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, dto.ToAssignmentEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"history": resp})
}

func (h *TaskHandler) taskID(c *gin.Context) (uint64, bool) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid task ID")
		return 0, false
	}
	return taskID, true
}

func (h *TaskHandler) respondTaskError(c *gin.Context, err error, fallback string) {
	switch {
	case goerrors.Is(err, services.ErrTaskNotFound):
		errors.NotFound(c, "Task not found")
	case goerrors.Is(err, services.ErrNotTeamMember):
		errors.NotFound(c, "Team not found")
	case goerrors.Is(err, services.ErrTaskPermissionDenied):
		errors.Forbidden(c, err.Error())
	case goerrors.Is(err, services.ErrNotTeamTask):
		errors.BadRequest(c, "Assignment operations apply to team tasks only")
	case goerrors.Is(err, services.ErrAssigneeNotMember):
		errors.BadRequest(c, "Assignee is not a member of the team")
	case goerrors.Is(err, services.ErrTitleRequired),
		goerrors.Is(err, services.ErrTitleTooLong),
		goerrors.Is(err, services.ErrDescriptionTooLong),
		goerrors.Is(err, services.ErrInvalidStatus),
		goerrors.Is(err, services.ErrInvalidPriority),
		goerrors.Is(err, services.ErrDueDateInPast):
		errors.BadRequest(c, err.Error())
	default:
		logger.Error().Err(err).Msg(fallback)
		errors.InternalError(c, fallback)
	}
}

// parseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
