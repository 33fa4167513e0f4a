package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
	"github.com/taskhive/server/internal/utils"
)

type testEnv struct {
	db        *gorm.DB
	auth      *AuthService
	teams     *TeamService
	tasks     *TaskService
	analytics *AnalyticsService
	taskRepo  repository.TaskRepository
	teamRepo  repository.TeamRepository
	userRepo  repository.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Invitation{},
		&models.Task{},
		&models.AssignmentEntry{},
	))

	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	hasher := &utils.BcryptHasher{Cost: 4}

	return &testEnv{
		db:        db,
		auth:      NewAuthService(userRepo, teamRepo, hasher),
		teams:     NewTeamService(teamRepo, userRepo),
		tasks:     NewTaskService(taskRepo, teamRepo),
		analytics: NewAnalyticsService(db, taskRepo, teamRepo, userRepo),
		taskRepo:  taskRepo,
		teamRepo:  teamRepo,
		userRepo:  userRepo,
	}
}

func (e *testEnv) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := e.auth.Register(RegisterInput{
		Name:     name,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createTeam(t *testing.T, name string, creatorID uint64) *models.Team {
	t.Helper()
	team, err := e.teams.CreateTeam(CreateTeamInput{Name: name, CreatorID: creatorID})
	require.NoError(t, err)
	return team
}

// addMember invites and accepts in one step.
func (e *testEnv) addMember(t *testing.T, teamID, inviterID uint64, user *models.User) {
	t.Helper()
	inv, err := e.teams.InviteByEmail(teamID, inviterID, user.Email)
	require.NoError(t, err)
	_, err = e.teams.AcceptInvitation(user.ID, inv.ID)
	require.NoError(t, err)
}

func (e *testEnv) createTask(t *testing.T, creatorID uint64, mutate func(*CreateTaskInput)) *models.Task {
	t.Helper()
	due := time.Now().AddDate(0, 0, 3)
	input := CreateTaskInput{
		Title:     "Write report",
		DueDate:   &due,
		CreatorID: creatorID,
	}
	if mutate != nil {
		mutate(&input)
	}
	task, err := e.tasks.CreateTask(input)
	require.NoError(t, err)
	return task
}
