package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskhive/server/internal/config"
	"github.com/taskhive/server/internal/database"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
	"github.com/taskhive/server/internal/services"
	"github.com/taskhive/server/internal/utils"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	database.SetDB(db)

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTExpireHours: 1,
		SessionSecret:  "test-session-secret",
		GinMode:        gin.TestMode,
	}
	utils.SetJWTSecret(cfg.JWTSecret)

	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := services.NewAuthService(userRepo, teamRepo, &utils.BcryptHasher{Cost: 4})
	teamService := services.NewTeamService(teamRepo, userRepo)
	taskService := services.NewTaskService(taskRepo, teamRepo)
	analyticsService := services.NewAnalyticsService(db, taskRepo, teamRepo, userRepo)

	authHandler := NewAuthHandler(authService, cfg)
	userHandler := NewUserHandler(authService)
	teamHandler := NewTeamHandler(teamService)
	taskHandler := NewTaskHandler(taskService)
	analyticsHandler := NewAnalyticsHandler(analyticsService)

	router := gin.New()
	router.Use(sessions.Sessions("test_session", cookie.NewStore([]byte(cfg.SessionSecret))))

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password/:token", authHandler.ResetPassword)
		auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		auth.PUT("/profile", middleware.AuthRequired(), authHandler.UpdateProfile)
	}

	users := api.Group("/users", middleware.AuthRequired())
	{
		users.DELETE("/me", userHandler.DeleteAccount)
		users.PATCH("/me/preferences", userHandler.UpdatePreferences)
	}

	teams := api.Group("/teams", middleware.AuthRequired())
	{
		teams.POST("", teamHandler.Create)
		teams.GET("", teamHandler.List)

		teams.GET("/invitations", teamHandler.ListInvitations)
		teams.POST("/invitations/:invitationId/accept", teamHandler.AcceptInvitation)
		teams.POST("/invitations/:invitationId/decline", teamHandler.DeclineInvitation)

		member := teams.Group("/:id", middleware.RequireTeamAccess())
		{
			member.GET("", teamHandler.Get)
			member.POST("/leave", teamHandler.Leave)

			manage := member.Group("", middleware.RequireTeamRole(models.RoleOwner, models.RoleAdmin))
			{
				manage.PUT("", teamHandler.Update)
				manage.POST("/invite", teamHandler.Invite)
				manage.DELETE("/members/:memberId", teamHandler.RemoveMember)
				manage.PUT("/members/:memberId/role", teamHandler.ChangeMemberRole)
			}

			member.PUT("/transfer-ownership/:memberId", middleware.RequireTeamRole(models.RoleOwner), teamHandler.TransferOwnership)
		}
	}

	tasks := api.Group("/tasks", middleware.AuthRequired())
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("", taskHandler.Create)
		tasks.GET("/stats", analyticsHandler.Stats)
		tasks.GET("/archived", taskHandler.ListArchived)
		tasks.GET("/assigned/me", taskHandler.ListAssigned)
		tasks.GET("/team/:teamId", taskHandler.ListTeam)
		tasks.POST("/team/:teamId", taskHandler.CreateInTeam)
		tasks.GET("/analytics", analyticsHandler.Overview)
		tasks.GET("/analytics/trends", analyticsHandler.Trend)
		tasks.GET("/analytics/team/:teamId", analyticsHandler.TeamOverview)
		tasks.GET("/analytics/team/:teamId/workload", analyticsHandler.Workload)
		tasks.GET("/analytics/team/:teamId/trends", analyticsHandler.TeamTrend)
		tasks.GET("/analytics/team/:teamId/member/:memberId", analyticsHandler.MemberPerformance)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.PUT("/:id/archive", taskHandler.ToggleArchive)
		tasks.GET("/:id/history", taskHandler.History)
		tasks.POST("/:id/assign", taskHandler.Assign)
		tasks.POST("/:id/unassign", taskHandler.Unassign)
		tasks.POST("/:id/reassign", taskHandler.Reassign)
	}

	return &testServer{router: router, db: db}
}

func (s *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and user ID.
func (s *testServer) register(t *testing.T, name, email string) (string, uint64) {
	t.Helper()

	w := s.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID uint64 `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
