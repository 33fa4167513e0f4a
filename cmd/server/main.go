package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/taskhive/server/internal/config"
	"github.com/taskhive/server/internal/constants"
	"github.com/taskhive/server/internal/database"
	"github.com/taskhive/server/internal/handlers"
	"github.com/taskhive/server/internal/logger"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
	"github.com/taskhive/server/internal/services"
	"github.com/taskhive/server/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	utils.SetJWTSecret(cfg.JWTSecret)

	if err := database.Connect(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	router := setupRouter(cfg)

	logger.Info().Str("port", cfg.Port).Msg("starting server")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinLogger(), gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodyLimit(constants.MaxBodyBytes))
	router.Use(cors.New(corsConfig(cfg)))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		MaxAge:   constants.SessionMaxAge,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
	})
	router.Use(sessions.Sessions(constants.SessionCookieName, store))

	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := services.NewAuthService(userRepo, teamRepo, utils.NewBcryptHasher())
	teamService := services.NewTeamService(teamRepo, userRepo)
	taskService := services.NewTaskService(taskRepo, teamRepo)
	analyticsService := services.NewAnalyticsService(db, taskRepo, teamRepo, userRepo)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(authService)
	teamHandler := handlers.NewTeamHandler(teamService)
	taskHandler := handlers.NewTaskHandler(taskService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	api := router.Group("/api")
	api.Use(middleware.NewDefaultRateLimiter().Middleware())

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

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
		users.GET("/me", userHandler.GetProfile)
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

	return router
}

// corsConfig allows the configured production origins, or localhost dev
// origins when none are set. Origins are matched exactly.
func corsConfig(cfg *config.Config) cors.Config {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:" + cfg.Port,
		}
	}

	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
