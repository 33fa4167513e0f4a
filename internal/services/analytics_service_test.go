package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/server/internal/models"
)

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.Title = "todo one" })
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "in progress"
		in.Status = models.TaskStatusInProgress
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "done"
		in.Status = models.TaskStatusCompleted
	})

	// An overdue task: due date pushed into the past after creation
	overdue := env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.Title = "late" })
	past := time.Now().AddDate(0, 0, -3)
	require.NoError(t, env.db.Model(&models.Task{}).Where("id = ?", overdue.ID).Update("due_date", past).Error)

	archived := env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.Title = "old" })
	_, err := env.tasks.ToggleArchive(archived.ID, alice.ID)
	require.NoError(t, err)

	stats, err := env.analytics.GetStats(alice.ID)
	require.NoError(t, err)

	// Archived tasks are excluded from every active counter
	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 2, stats.Todo)
	assert.EqualValues(t, 1, stats.InProgress)
	assert.EqualValues(t, 1, stats.Completed)
	// Overdue overlaps the status buckets
	assert.EqualValues(t, 1, stats.Overdue)
	assert.EqualValues(t, 1, stats.ArchivedTotal)
}

func TestGetOverview(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "high prio"
		in.Priority = models.TaskPriorityHigh
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "done"
		in.Status = models.TaskStatusCompleted
	})

	overview, err := env.analytics.GetOverview(alice.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, overview.StatusDistribution.Todo)
	assert.EqualValues(t, 1, overview.StatusDistribution.Completed)
	assert.EqualValues(t, 1, overview.PriorityDistribution.High)
	assert.EqualValues(t, 1, overview.PriorityDistribution.Medium)

	assert.EqualValues(t, 2, overview.Monthly.Created)
	assert.EqualValues(t, 1, overview.Monthly.Completed)

	assert.EqualValues(t, 2, overview.Performance.TotalTasks)
	assert.InDelta(t, 50.0, overview.Performance.CompletionRate, 0.01)

	require.Len(t, overview.CompletionTrend, 90)
	assert.Equal(t, overview.CompletionTrend, overview.CompletionCalendar)
}

func TestGetCompletionTrend_DenseWindow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")

	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "done today"
		in.Status = models.TaskStatusCompleted
	})

	trend, err := env.analytics.GetCompletionTrend(alice.ID)
	require.NoError(t, err)

	// Every day of the window appears, zero-filled
	require.Len(t, trend, 90)

	var sum int64
	for _, p := range trend {
		sum += p.Count
	}
	assert.EqualValues(t, 1, sum)
	assert.EqualValues(t, 1, trend[len(trend)-1].Count)
}

func TestGetTeamOverview(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	mallory := env.createUser(t, "Mallory", "mallory@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)

	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "team todo"
		in.TeamID = &team.ID
		in.AssigneeID = &bob.ID
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "team done"
		in.TeamID = &team.ID
		in.Status = models.TaskStatusCompleted
	})

	overview, err := env.analytics.GetTeamOverview(team.ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, overview.StatusDistribution.Todo)
	assert.EqualValues(t, 1, overview.StatusDistribution.Completed)
	assert.EqualValues(t, 2, overview.Monthly.Created)
	assert.Len(t, overview.Workload, 2)

	require.Len(t, overview.CompletionTrend, 90)
	assert.EqualValues(t, 1, overview.CompletionTrend[len(overview.CompletionTrend)-1].Count)

	// Non-members see nothing
	_, err = env.analytics.GetTeamOverview(team.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrNotTeamMember)

	_, err = env.analytics.GetTeamCompletionTrend(team.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrNotTeamMember)

	trend, err := env.analytics.GetTeamCompletionTrend(team.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, overview.CompletionTrend, trend)
}

func TestGetWorkload(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	carol := env.createUser(t, "Carol", "carol@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)
	env.addMember(t, team.ID, alice.ID, carol)

	for i := 0; i < 3; i++ {
		env.createTask(t, alice.ID, func(in *CreateTaskInput) {
			in.Title = "bob task"
			in.TeamID = &team.ID
			in.AssigneeID = &bob.ID
		})
	}
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "carol task"
		in.TeamID = &team.ID
		in.AssigneeID = &carol.ID
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "carol done"
		in.TeamID = &team.ID
		in.AssigneeID = &carol.ID
		in.Status = models.TaskStatusCompleted
	})

	workload, err := env.analytics.GetWorkload(team.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, workload, 3)

	byUser := make(map[uint64]MemberWorkload, len(workload))
	for _, w := range workload {
		byUser[w.UserID] = w
	}

	assert.EqualValues(t, 3, byUser[bob.ID].Assigned)
	assert.InDelta(t, 75.0, byUser[bob.ID].Percentage, 0.01)
	// Completed tasks leave the open workload but stay in the completed column
	assert.EqualValues(t, 1, byUser[carol.ID].Assigned)
	assert.EqualValues(t, 1, byUser[carol.ID].Completed)
	assert.InDelta(t, 25.0, byUser[carol.ID].Percentage, 0.01)
	// Members without assignments still appear
	assert.EqualValues(t, 0, byUser[alice.ID].Assigned)
}

func TestGetStats_AssigneeScoped(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)

	// Created by Alice but delegated to Bob
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "delegated"
		in.TeamID = &team.ID
		in.AssigneeID = &bob.ID
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) { in.Title = "own" })

	aliceStats, err := env.analytics.GetStats(alice.ID)
	require.NoError(t, err)
	bobStats, err := env.analytics.GetStats(bob.ID)
	require.NoError(t, err)

	// Delegated tasks count for the assignee, not the creator
	assert.EqualValues(t, 1, aliceStats.Total)
	assert.EqualValues(t, 1, bobStats.Total)

	aliceOverview, err := env.analytics.GetOverview(alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, aliceOverview.StatusDistribution.Todo)
	assert.EqualValues(t, 1, aliceOverview.Performance.TotalTasks)
}

func TestGetMemberPerformance(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice", "alice@example.com")
	bob := env.createUser(t, "Bob", "bob@example.com")
	team := env.createTeam(t, "Platform", alice.ID)
	env.addMember(t, team.ID, alice.ID, bob)

	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "open"
		in.TeamID = &team.ID
		in.AssigneeID = &bob.ID
	})
	env.createTask(t, alice.ID, func(in *CreateTaskInput) {
		in.Title = "closed"
		in.TeamID = &team.ID
		in.AssigneeID = &bob.ID
		in.Status = models.TaskStatusCompleted
	})

	perf, err := env.analytics.GetMemberPerformance(team.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, perf.TotalAssigned)
	assert.EqualValues(t, 1, perf.Completed)
	assert.InDelta(t, 50.0, perf.CompletionRate, 0.01)

	_, err = env.analytics.GetMemberPerformance(team.ID, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
