package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
)

func TestCreateTask_Personal(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	task := env.createTask(t, alice.ID, nil)

	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.Equal(t, models.VisibilityPersonal, task.Visibility)
	// Personal tasks default the assignee to the creator
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, alice.ID, *task.AssigneeID)

	// Creation seeds the assignment history
	history, err := env.tasks.ListHistory(task.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, alice.ID, *history[0].AssigneeID)
}

func TestCreateTask_Validation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	due := time.Now().AddDate(0, 0, 1)
	past := time.Now().AddDate(0, 0, -2)

	cases := []struct {
		name  string
		input CreateTaskInput
		want  error
	}{
		{"empty title", CreateTaskInput{Title: "  ", DueDate: &due, CreatorID: alice.ID}, ErrTitleRequired},
		{"long title", CreateTaskInput{Title: strings.Repeat("x", 101), DueDate: &due, CreatorID: alice.ID}, ErrTitleTooLong},
		{"long description", CreateTaskInput{Title: "ok", Description: strings.Repeat("x", 1001), DueDate: &due, CreatorID: alice.ID}, ErrDescriptionTooLong},
		{"bad status", CreateTaskInput{Title: "ok", Status: "paused", DueDate: &due, CreatorID: alice.ID}, ErrInvalidStatus},
		{"bad priority", CreateTaskInput{Title: "ok", Priority: "urgent", DueDate: &due, CreatorID: alice.ID}, ErrInvalidPriority},
		{"past due date", CreateTaskInput{Title: "ok", DueDate: &past, CreatorID: alice.ID}, ErrDueDateInPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.tasks.CreateTask(tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateTask_DueToday(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	// The past check is at day granularity: earlier today is fine
	earlierToday := time.Now().Add(-time.Minute)
	_, err := env.tasks.CreateTask(CreateTaskInput{
		Title:     "Due today",
		DueDate:   &earlierToday,
		CreatorID: alice.ID,
	})
	assert.NoError(t, err)
}

func TestCreateTask_Team(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)

	task := env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.TeamID = &team.ID
		in.AssigneeID = &bob.ID
	})
	assert.Equal(t, models.VisibilityTeam, task.Visibility)
	assert.Equal(t, bob.ID, *task.AssigneeID)

	// Collaborators cannot create team tasks
	due := time.Now().AddDate(0, 0, 1)
	_, err := env.tasks.CreateTask(CreateTaskInput{
		Title:     "By collaborator",
		DueDate:   &due,
		TeamID:    &team.ID,
		CreatorID: bob.ID,
	})
	assert.ErrorIs(t, err, ErrTaskPermissionDenied)

	// Outsiders cannot target the team's assignees
	ghost := env.createUser(t, "Ghost", "ghost@example.com")
	_, err = env.tasks.CreateTask(CreateTaskInput{
		Title:      "Bad assignee",
		DueDate:    &due,
		TeamID:     &team.ID,
		AssigneeID: &ghost.ID,
		CreatorID:  alice.ID,
	})
	assert.ErrorIs(t, err, ErrAssigneeNotMember)
}

func TestUpdateTask_CompletedAtCoupling(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	task := env.createTask(t, alice.ID, nil)
	require.Nil(t, task.CompletedAt)

	completed := models.TaskStatusCompleted
	task, err := env.tasks.UpdateTask(task.ID, alice.ID, UpdateTaskInput{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	// Leaving the completed state clears the timestamp
	todo := models.TaskStatusTodo
	task, err = env.tasks.UpdateTask(task.ID, alice.ID, UpdateTaskInput{Status: &todo})
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)
}

func TestUpdateTask_DueDateInPast(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	task := env.createTask(t, alice.ID, nil)

	past := time.Now().AddDate(0, 0, -30)
	_, err := env.tasks.UpdateTask(task.ID, alice.ID, UpdateTaskInput{DueDate: &past})
	assert.ErrorIs(t, err, ErrDueDateInPast)

	// The stored due date is untouched
	reloaded, err := env.tasks.GetTask(task.ID, alice.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, *task.DueDate, *reloaded.DueDate, time.Second)

	today := time.Now()
	_, err = env.tasks.UpdateTask(task.ID, alice.ID, UpdateTaskInput{DueDate: &today})
	assert.NoError(t, err)

	// An old task may keep a due date after its creation day, even if
	// that day has passed
	backdated := time.Now().AddDate(0, 0, -60)
	require.NoError(t, env.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("created_at", backdated).Error)
	overdueDue := time.Now().AddDate(0, 0, -10)
	_, err = env.tasks.UpdateTask(task.ID, alice.ID, UpdateTaskInput{DueDate: &overdueDue})
	assert.NoError(t, err)
}

func TestUpdateTask_Permissions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	mallory := env.createUser(t, "Mallory", "mallory@example.com")
	task := env.createTask(t, alice.ID, nil)

	title := "Hijacked"
	_, err := env.tasks.UpdateTask(task.ID, mallory.ID, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, ErrTaskPermissionDenied)
}

func TestToggleArchive(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	task := env.createTask(t, alice.ID, nil)

	task, err := env.tasks.ToggleArchive(task.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, task.Archived)
	assert.NotNil(t, task.ArchivedAt)

	task, err = env.tasks.ToggleArchive(task.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, task.Archived)
	assert.Nil(t, task.ArchivedAt)
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	mallory := env.createUser(t, "Mallory", "mallory@example.com")
	task := env.createTask(t, alice.ID, nil)

	err := env.tasks.DeleteTask(task.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrTaskPermissionDenied)

	require.NoError(t, env.tasks.DeleteTask(task.ID, alice.ID))

	_, err = env.tasks.GetTask(task.ID, alice.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// History rows are removed with the task
	var count int64
	require.NoError(t, env.db.Model(&models.AssignmentEntry{}).Where("task_id = ?", task.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteTask_TeamAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)
	require.NoError(t, env.teams.ChangeMemberRole(team.ID, bob.ID, models.RoleAdmin))

	task := env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.TeamID = &team.ID })

	// A team admin may delete tasks they did not create
	assert.NoError(t, env.tasks.DeleteTask(task.ID, bob.ID))
}

func TestAssignmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	carol := env.createUser(t, "Carol", "carol@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)
	env.addMember(t, team.ID, alice.ID, carol)

	task := env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.TeamID = &team.ID })

	task, err := env.tasks.Assign(AssignInput{TaskID: task.ID, ActorID: alice.ID, MemberID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, *task.AssigneeID)
	assert.NotNil(t, task.AssignedAt)

	task, err = env.tasks.Reassign(AssignInput{TaskID: task.ID, ActorID: alice.ID, MemberID: carol.ID, Note: "handoff"})
	require.NoError(t, err)
	assert.Equal(t, carol.ID, *task.AssigneeID)

	task, err = env.tasks.Unassign(task.ID, alice.ID, "")
	require.NoError(t, err)
	assert.Nil(t, task.AssigneeID)
	assert.Nil(t, task.AssignedAt)

	// History is append-only: creation, assign, unassign (reassign),
	// assign (reassign), unassign
	history, err := env.tasks.ListHistory(task.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.NotNil(t, history[1].AssignedAt)
	assert.NotNil(t, history[2].UnassignedAt)
	assert.Equal(t, bob.ID, *history[2].AssigneeID)
	assert.Equal(t, carol.ID, *history[3].AssigneeID)
}

func TestAssign_Restrictions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)

	// Personal tasks have no assignment operations
	personal := env.createTask(t, alice.ID, nil)
	_, err := env.tasks.Assign(AssignInput{TaskID: personal.ID, ActorID: alice.ID, MemberID: alice.ID})
	assert.ErrorIs(t, err, ErrNotTeamTask)

	teamTask := env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.TeamID = &team.ID })

	// Collaborators cannot assign
	_, err = env.tasks.Assign(AssignInput{TaskID: teamTask.ID, ActorID: bob.ID, MemberID: bob.ID})
	assert.ErrorIs(t, err, ErrTaskPermissionDenied)

	// Assignees must belong to the team
	ghost := env.createUser(t, "Ghost", "ghost@example.com")
	_, err = env.tasks.Assign(AssignInput{TaskID: teamTask.ID, ActorID: alice.ID, MemberID: ghost.ID})
	assert.ErrorIs(t, err, ErrAssigneeNotMember)
}

func TestReassign_FailedTargetLeavesHistoryUntouched(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	outsider := env.createUser(t, "Mallory", "mallory@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)

	task := env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.TeamID = &team.ID
		in.AssigneeID = &bob.ID
	})

	before, err := env.tasks.ListHistory(task.ID, alice.ID)
	require.NoError(t, err)

	_, err = env.tasks.Reassign(AssignInput{TaskID: task.ID, ActorID: alice.ID, MemberID: outsider.ID})
	assert.ErrorIs(t, err, ErrAssigneeNotMember)

	// No unassignment entry sneaks in when the reassign is rejected
	after, err := env.tasks.ListHistory(task.ID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	reloaded, err := env.tasks.GetTask(task.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.AssigneeID)
	assert.Equal(t, bob.ID, *reloaded.AssigneeID)
}

func TestGetTask_HiddenForOutsiders(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	mallory := env.createUser(t, "Mallory", "mallory@example.com")
	task := env.createTask(t, alice.ID, nil)

	// Inaccessible tasks read as absent, not forbidden
	_, err := env.tasks.GetTask(task.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestListTasks_FiltersAndSort(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	soon := time.Now().AddDate(0, 0, 1)
	later := time.Now().AddDate(0, 0, 30)

	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "Fix login bug"
		in.Priority = models.TaskPriorityHigh
		in.DueDate = &soon
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "Write docs"
		in.Priority = models.TaskPriorityLow
		in.DueDate = &later
	})
	archived := env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "Old chore"
	})
	_, err := env.tasks.ToggleArchive(archived.ID, alice.ID)
	require.NoError(t, err)

	// Archived tasks never appear in the default listing
	tasks, total, err := env.tasks.ListTasks(alice.ID, repository.TaskFilter{OwnerOrAssignee: &alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, tasks, 2)

	// Case-insensitive title search
	tasks, _, err = env.tasks.ListTasks(alice.ID, repository.TaskFilter{
		OwnerOrAssignee: &alice.ID,
		Search:          "LOGIN",
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Fix login bug", tasks[0].Title)

	// Priority sort, high first
	tasks, _, err = env.tasks.ListTasks(alice.ID, repository.TaskFilter{
		OwnerOrAssignee: &alice.ID,
		SortBy:          repository.SortByPriority,
		SortDesc:        true,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.TaskPriorityHigh, tasks[0].Priority)

	// Status filter
	status := models.TaskStatusCompleted
	_, total, err = env.tasks.ListTasks(alice.ID, repository.TaskFilter{
		OwnerOrAssignee: &alice.ID,
		Status:          &status,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListTasks_TeamScopeRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	mallory := env.createUser(t, "Mallory", "mallory@example.com")
	team := env.createTeam(t, "Platform", alice.ID)

	_, _, err := env.tasks.ListTasks(mallory.ID, repository.TaskFilter{TeamID: &team.ID})
	assert.ErrorIs(t, err, ErrNotTeamMember)
}

func TestListTasks_Pagination(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	for i := 0; i < 5; i++ {
		env.createTask(t, alice.ID, func(in *CreateTaskInput) {
			in.Title = "Task " + string(rune('A'+i))
		})
	}

	tasks, total, err := env.tasks.ListTasks(alice.ID, repository.TaskFilter{
		OwnerOrAssignee: &alice.ID,
		Page:            2,
		PageSize:        2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, tasks, 2)
}
