package handlers

import (
	goerrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/server/internal/errors"
	"github.com/taskhive/server/internal/logger"
	"github.com/taskhive/server/internal/middleware"
	"github.com/taskhive/server/internal/services"
)

// AnalyticsHandler handles personal and team analytics endpoints.
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Overview handles GET /api/tasks/analytics — the personal dashboard
// payload.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	overview, err := h.analyticsService.GetOverview(middleware.GetUserID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compute analytics overview")
		errors.InternalError(c, "Failed to compute analytics")
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Stats handles GET /api/tasks/stats — the compact counter card.
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	stats, err := h.analyticsService.GetStats(middleware.GetUserID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compute task stats")
		errors.InternalError(c, "Failed to compute task stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// Trend handles GET /api/tasks/analytics/trends — the personal daily
// completion calendar.
func (h *AnalyticsHandler) Trend(c *gin.Context) {
	trend, err := h.analyticsService.GetCompletionTrend(middleware.GetUserID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compute completion trend")
		errors.InternalError(c, "Failed to compute completion trend")
		return
	}

	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

// TeamTrend handles GET /api/tasks/analytics/team/:teamId/trends
func (h *AnalyticsHandler) TeamTrend(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	trend, err := h.analyticsService.GetTeamCompletionTrend(teamID, middleware.GetUserID(c))
	if err != nil {
		h.respondAnalyticsError(c, err, "Failed to compute team completion trend")
		return
	}

	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

// TeamOverview handles GET /api/tasks/analytics/team/:teamId
func (h *AnalyticsHandler) TeamOverview(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	overview, err := h.analyticsService.GetTeamOverview(teamID, middleware.GetUserID(c))
	if err != nil {
		h.respondAnalyticsError(c, err, "Failed to compute team analytics")
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Workload handles GET /api/tasks/analytics/team/:teamId/workload
func (h *AnalyticsHandler) Workload(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	workload, err := h.analyticsService.GetWorkload(teamID, middleware.GetUserID(c))
	if err != nil {
		h.respondAnalyticsError(c, err, "Failed to compute workload distribution")
		return
	}

	c.JSON(http.StatusOK, gin.H{"workload": workload})
}

// MemberPerformance handles GET /api/tasks/analytics/team/:teamId/member/:memberId
func (h *AnalyticsHandler) MemberPerformance(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	memberID, err := strconv.ParseUint(c.Param("memberId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid member ID")
		return
	}

	perf, err := h.analyticsService.GetMemberPerformance(teamID, middleware.GetUserID(c), memberID)
	if err != nil {
		h.respondAnalyticsError(c, err, "Failed to compute member performance")
		return
	}

	c.JSON(http.StatusOK, gin.H{"performance": perf})
}

func (h *AnalyticsHandler) teamID(c *gin.Context) (uint64, bool) {
	teamID, err := strconv.ParseUint(c.Param("teamId"), 10, 64)
	if err != nil {
		errors.BadRequest(c, "Invalid team ID")
		return 0, false
	}
	return teamID, true
}

func (h *AnalyticsHandler) respondAnalyticsError(c *gin.Context, err error, fallback string) {
	switch {
	case goerrors.Is(err, services.ErrNotTeamMember):
		errors.NotFound(c, "Team not found")
	case goerrors.Is(err, services.ErrMemberNotFound):
		errors.NotFound(c, "Member not found")
	default:
		logger.Error().Err(err).Msg(fallback)
		errors.InternalError(c, fallback)
	}
}
