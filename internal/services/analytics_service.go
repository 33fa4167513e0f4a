package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/taskhive/server/internal/constants"
	"github.com/taskhive/server/internal/models"
	"github.com/taskhive/server/internal/repository"
)

// AnalyticsService computes aggregate task metrics. It queries the database
// directly because its read shapes (grouped counts, calendars, deltas) do
// not map onto the repository CRUD surface.
type AnalyticsService struct {
	db       *gorm.DB
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(db *gorm.DB, taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, userRepo repository.UserRepository) *AnalyticsService {
	return &AnalyticsService{
		db:       db,
		taskRepo: taskRepo,
		teamRepo: teamRepo,
		userRepo: userRepo,
	}
}

// StatusDistribution buckets tasks by status, plus a derived overdue bucket.
// Overdue overlaps the status buckets rather than replacing them.
type StatusDistribution struct {
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
}

// PriorityDistribution buckets tasks by priority.
type PriorityDistribution struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
}

// TrendPoint is one day in a completion calendar.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// MonthlyCounters are per-calendar-month task counters.
type MonthlyCounters struct {
	Created   int64 `json:"created"`
	Completed int64 `json:"completed"`
	Archived  int64 `json:"archived"`
}

// Performance summarizes throughput over the trend window.
type Performance struct {
	TotalTasks        int64   `json:"totalTasks"`
	CompletionRate    float64 `json:"completionRate"`
	AvgCompletionTime float64 `json:"avgCompletionTime"`
}

// KPIDeltas are percentage changes against the prior period.
type KPIDeltas struct {
	CompletedWeekOverWeek   float64 `json:"completedWeekOverWeek"`
	CompletedMonthOverMonth float64 `json:"completedMonthOverMonth"`
	CreatedWeekOverWeek     float64 `json:"createdWeekOverWeek"`
	CreatedMonthOverMonth   float64 `json:"createdMonthOverMonth"`
}

// Overview bundles the personal analytics payload. CompletionCalendar
// repeats CompletionTrend because the dashboard heatmap and the trend chart
// consume the same series under different keys.
type Overview struct {
	StatusDistribution   StatusDistribution   `json:"statusDistribution"`
	PriorityDistribution PriorityDistribution `json:"priorityDistribution"`
	CompletionTrend      []TrendPoint         `json:"completionTrend"`
	CompletionCalendar   []TrendPoint         `json:"completionCalendar"`
	Monthly              MonthlyCounters      `json:"monthly"`
	LastMonth            MonthlyCounters      `json:"lastMonth"`
	Performance          Performance          `json:"performance"`
	Deltas               KPIDeltas            `json:"deltas"`
}

// StatsCard is the compact counter block for the task dashboard.
type StatsCard struct {
	Total         int64 `json:"total"`
	Todo          int64 `json:"todo"`
	InProgress    int64 `json:"inProgress"`
	Completed     int64 `json:"completed"`
	Overdue       int64 `json:"overdue"`
	ArchivedTotal int64 `json:"archivedTotal"`
}

// MemberWorkload is the per-member slice of a team workload distribution.
type MemberWorkload struct {
	UserID     uint64  `json:"userId"`
	Name       string  `json:"name"`
	Assigned   int64   `json:"assigned"`
	Completed  int64   `json:"completed"`
	Percentage float64 `json:"percentage"`
}

// MemberPerformance summarizes one member's throughput within a team.
type MemberPerformance struct {
	UserID            uint64  `json:"userId"`
	Name              string  `json:"name"`
	TotalAssigned     int64   `json:"totalAssigned"`
	Completed         int64   `json:"completed"`
	CompletionRate    float64 `json:"completionRate"`
	AvgCompletionTime float64 `json:"avgCompletionTime"`
}

// TeamOverview bundles the team analytics payload.
type TeamOverview struct {
	TeamID               uint64               `json:"teamId"`
	StatusDistribution   StatusDistribution   `json:"statusDistribution"`
	PriorityDistribution PriorityDistribution `json:"priorityDistribution"`
	CompletionTrend      []TrendPoint         `json:"completionTrend"`
	Monthly              MonthlyCounters      `json:"monthly"`
	Performance          Performance          `json:"performance"`
	Workload             []MemberWorkload     `json:"workload"`
}

// userScope restricts to active tasks assigned to the user. Tasks the user
// created but delegated belong to the assignee's numbers, not theirs.
// Archived tasks never count toward distributions or rates.
func (s *AnalyticsService) userScope(userID uint64) *gorm.DB {
	return s.db.Model(&models.Task{}).
		Where("archived = ?", false).
		Where("assignee_id = ?", userID)
}

func (s *AnalyticsService) teamScope(teamID uint64) *gorm.DB {
	return s.db.Model(&models.Task{}).
		Where("archived = ?", false).
		Where("team_id = ?", teamID)
}

// GetOverview computes the personal analytics payload. Calendar boundaries
// use the user's preferred timezone when it loads, UTC otherwise.
func (s *AnalyticsService) GetOverview(userID uint64) (*Overview, error) {
	loc := s.userLocation(userID)
	now := time.Now().In(loc)

	status, err := s.statusDistribution(s.userScope(userID), now)
	if err != nil {
		return nil, err
	}
	priority, err := s.priorityDistribution(s.userScope(userID))
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	monthly, err := s.monthlyCounters(userID, monthStart, now)
	if err != nil {
		return nil, err
	}
	lastMonth, err := s.monthlyCounters(userID, lastMonthStart, monthStart)
	if err != nil {
		return nil, err
	}

	perf, err := s.performance(s.userScope(userID), now)
	if err != nil {
		return nil, err
	}

	deltas, err := s.kpiDeltas(userID, now)
	if err != nil {
		return nil, err
	}

	trend, err := s.completionTrend(s.userScope(userID), loc)
	if err != nil {
		return nil, err
	}

	return &Overview{
		StatusDistribution:   *status,
		PriorityDistribution: *priority,
		CompletionTrend:      trend,
		CompletionCalendar:   trend,
		Monthly:              *monthly,
		LastMonth:            *lastMonth,
		Performance:          *perf,
		Deltas:               *deltas,
	}, nil
}

// GetStats computes the compact stat card for a user's assigned tasks.
func (s *AnalyticsService) GetStats(userID uint64) (*StatsCard, error) {
	counts, err := s.taskRepo.CountByStatus(userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	var overdue int64
	if err := s.userScope(userID).
		Where("status <> ?", models.TaskStatusCompleted).
		Where("due_date IS NOT NULL AND due_date < ?", time.Now()).
		Count(&overdue).Error; err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	var archived int64
	if err := s.db.Model(&models.Task{}).
		Where("archived = ?", true).
		Where("assignee_id = ?", userID).
		Count(&archived).Error; err != nil {
		return nil, fmt.Errorf("failed to count archived tasks: %w", err)
	}

	todo := counts[models.TaskStatusTodo]
	inProgress := counts[models.TaskStatusInProgress]
	completed := counts[models.TaskStatusCompleted]

	return &StatsCard{
		Total:         todo + inProgress + completed,
		Todo:          todo,
		InProgress:    inProgress,
		Completed:     completed,
		Overdue:       overdue,
		ArchivedTotal: archived,
	}, nil
}

// GetCompletionTrend returns a dense, zero-filled daily completion calendar
// covering the trailing trend window.
func (s *AnalyticsService) GetCompletionTrend(userID uint64) ([]TrendPoint, error) {
	loc := s.userLocation(userID)
	return s.completionTrend(s.userScope(userID), loc)
}

// GetTeamCompletionTrend is the team-scoped completion calendar. The caller
// must be a member of the team.
func (s *AnalyticsService) GetTeamCompletionTrend(teamID, actorID uint64) ([]TrendPoint, error) {
	if err := s.requireMember(teamID, actorID); err != nil {
		return nil, err
	}
	return s.completionTrend(s.teamScope(teamID), s.userLocation(actorID))
}

// GetTeamOverview computes the team analytics payload. The caller must be a
// member of the team.
func (s *AnalyticsService) GetTeamOverview(teamID, actorID uint64) (*TeamOverview, error) {
	if err := s.requireMember(teamID, actorID); err != nil {
		return nil, err
	}

	loc := s.userLocation(actorID)
	now := time.Now().In(loc)

	status, err := s.statusDistribution(s.teamScope(teamID), now)
	if err != nil {
		return nil, err
	}
	priority, err := s.priorityDistribution(s.teamScope(teamID))
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	monthly := MonthlyCounters{}
	if err := s.teamScope(teamID).Where("created_at >= ? AND created_at < ?", monthStart, now).Count(&monthly.Created).Error; err != nil {
		return nil, fmt.Errorf("failed to count created tasks: %w", err)
	}
	if err := s.teamScope(teamID).Where("completed_at >= ? AND completed_at < ?", monthStart, now).Count(&monthly.Completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	if err := s.db.Model(&models.Task{}).Where("team_id = ? AND archived = ? AND archived_at >= ? AND archived_at < ?", teamID, true, monthStart, now).Count(&monthly.Archived).Error; err != nil {
		return nil, fmt.Errorf("failed to count archived tasks: %w", err)
	}

	perf, err := s.performance(s.teamScope(teamID), now)
	if err != nil {
		return nil, err
	}

	workload, err := s.GetWorkload(teamID, actorID)
	if err != nil {
		return nil, err
	}

	trend, err := s.completionTrend(s.teamScope(teamID), loc)
	if err != nil {
		return nil, err
	}

	return &TeamOverview{
		TeamID:               teamID,
		StatusDistribution:   *status,
		PriorityDistribution: *priority,
		CompletionTrend:      trend,
		Monthly:              monthly,
		Performance:          *perf,
		Workload:             workload,
	}, nil
}

// GetWorkload computes per-member workload for a team: Assigned counts only
// open (non-completed) tasks, with completions reported alongside. Every
// current member appears, including those with zero assignments.
func (s *AnalyticsService) GetWorkload(teamID, actorID uint64) ([]MemberWorkload, error) {
	if err := s.requireMember(teamID, actorID); err != nil {
		return nil, err
	}

	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	type row struct {
		AssigneeID uint64
		Assigned   int64
		Completed  int64
	}
	var rows []row
	if err := s.teamScope(teamID).
		Select("assignee_id, COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) as assigned, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as completed", models.TaskStatusCompleted, models.TaskStatusCompleted).
		Where("assignee_id IS NOT NULL").
		Group("assignee_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate workload: %w", err)
	}

	byAssignee := make(map[uint64]row, len(rows))
	var totalAssigned int64
	for _, r := range rows {
		byAssignee[r.AssigneeID] = r
		totalAssigned += r.Assigned
	}

	workload := make([]MemberWorkload, 0, len(members))
	for _, m := range members {
		r := byAssignee[m.UserID]
		w := MemberWorkload{
			UserID:    m.UserID,
			Name:      m.User.Name,
			Assigned:  r.Assigned,
			Completed: r.Completed,
		}
		if totalAssigned > 0 {
			w.Percentage = round1(float64(r.Assigned) / float64(totalAssigned) * 100)
		}
		workload = append(workload, w)
	}

	return workload, nil
}

// GetMemberPerformance computes one member's throughput within a team.
func (s *AnalyticsService) GetMemberPerformance(teamID, actorID, memberID uint64) (*MemberPerformance, error) {
	if err := s.requireMember(teamID, actorID); err != nil {
		return nil, err
	}

	member, err := s.teamRepo.FindMember(teamID, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	scope := func() *gorm.DB {
		return s.teamScope(teamID).Where("assignee_id = ?", memberID)
	}

	var total, completed int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count assigned tasks: %w", err)
	}
	if err := scope().Where("status = ?", models.TaskStatusCompleted).Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	perf := &MemberPerformance{
		UserID:        memberID,
		Name:          member.User.Name,
		TotalAssigned: total,
		Completed:     completed,
	}
	if total > 0 {
		perf.CompletionRate = round1(float64(completed) / float64(total) * 100)
	}

	avg, err := s.avgCompletionHours(scope(), time.Now())
	if err != nil {
		return nil, err
	}
	perf.AvgCompletionTime = avg

	return perf, nil
}

func (s *AnalyticsService) statusDistribution(scope *gorm.DB, now time.Time) (*StatusDistribution, error) {
	type row struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []row
	session := scope.Session(&gorm.Session{})
	if err := session.Select("status, COUNT(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate status distribution: %w", err)
	}

	dist := &StatusDistribution{}
	for _, r := range rows {
		switch r.Status {
		case models.TaskStatusTodo:
			dist.Todo = r.Count
		case models.TaskStatusInProgress:
			dist.InProgress = r.Count
		case models.TaskStatusCompleted:
			dist.Completed = r.Count
		}
	}

	if err := scope.Session(&gorm.Session{}).
		Where("status <> ?", models.TaskStatusCompleted).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Count(&dist.Overdue).Error; err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	return dist, nil
}

func (s *AnalyticsService) priorityDistribution(scope *gorm.DB) (*PriorityDistribution, error) {
	type row struct {
		Priority models.TaskPriority
		Count    int64
	}
	var rows []row
	if err := scope.Select("priority, COUNT(*) as count").Group("priority").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate priority distribution: %w", err)
	}

	dist := &PriorityDistribution{}
	for _, r := range rows {
		switch r.Priority {
		case models.TaskPriorityLow:
			dist.Low = r.Count
		case models.TaskPriorityMedium:
			dist.Medium = r.Count
		case models.TaskPriorityHigh:
			dist.High = r.Count
		}
	}
	return dist, nil
}

func (s *AnalyticsService) completionTrend(scope *gorm.DB, loc *time.Location) ([]TrendPoint, error) {
	now := time.Now().In(loc)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -constants.TrendWindowDays)

	var completions []time.Time
	if err := scope.
		Where("completed_at >= ? AND completed_at < ?", start, end).
		Pluck("completed_at", &completions).Error; err != nil {
		return nil, fmt.Errorf("failed to load completion dates: %w", err)
	}

	// Bucketing happens in Go so day boundaries respect the user's
	// timezone regardless of the database driver.
	byDay := make(map[string]int64)
	for _, t := range completions {
		byDay[t.In(loc).Format("2006-01-02")]++
	}

	points := make([]TrendPoint, 0, constants.TrendWindowDays)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		points = append(points, TrendPoint{Date: key, Count: byDay[key]})
	}
	return points, nil
}

func (s *AnalyticsService) monthlyCounters(userID uint64, from, to time.Time) (*MonthlyCounters, error) {
	counters := &MonthlyCounters{}

	if err := s.userScope(userID).Where("created_at >= ? AND created_at < ?", from, to).Count(&counters.Created).Error; err != nil {
		return nil, fmt.Errorf("failed to count created tasks: %w", err)
	}
	if err := s.userScope(userID).Where("completed_at >= ? AND completed_at < ?", from, to).Count(&counters.Completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	if err := s.db.Model(&models.Task{}).
		Where("assignee_id = ?", userID).
		Where("archived = ? AND archived_at >= ? AND archived_at < ?", true, from, to).
		Count(&counters.Archived).Error; err != nil {
		return nil, fmt.Errorf("failed to count archived tasks: %w", err)
	}

	return counters, nil
}

func (s *AnalyticsService) performance(scope *gorm.DB, now time.Time) (*Performance, error) {
	var total, completed int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if err := scope.Session(&gorm.Session{}).Where("status = ?", models.TaskStatusCompleted).Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	perf := &Performance{TotalTasks: total}
	if total > 0 {
		perf.CompletionRate = round1(float64(completed) / float64(total) * 100)
	}

	avg, err := s.avgCompletionHours(scope, now)
	if err != nil {
		return nil, err
	}
	perf.AvgCompletionTime = avg

	return perf, nil
}

// avgCompletionHours averages completed_at - created_at, in hours, for
// tasks completed within the trend window. Durations are computed in Go to
// stay portable across sqlite, mysql and postgres.
func (s *AnalyticsService) avgCompletionHours(scope *gorm.DB, now time.Time) (float64, error) {
	windowStart := now.AddDate(0, 0, -constants.TrendWindowDays)

	type row struct {
		CreatedAt   time.Time
		CompletedAt time.Time
	}
	var rows []row
	if err := scope.Session(&gorm.Session{}).
		Select("created_at, completed_at").
		Where("completed_at >= ? AND completed_at < ?", windowStart, now).
		Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to load completion durations: %w", err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	var totalHours float64
	for _, r := range rows {
		totalHours += r.CompletedAt.Sub(r.CreatedAt).Hours()
	}
	return round1(totalHours / float64(len(rows))), nil
}

func (s *AnalyticsService) kpiDeltas(userID uint64, now time.Time) (*KPIDeltas, error) {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	monthAgo := now.AddDate(0, -1, 0)
	twoMonthsAgo := now.AddDate(0, -2, 0)

	count := func(column string, from, to time.Time) (int64, error) {
		var n int64
		err := s.userScope(userID).
			Where(column+" >= ? AND "+column+" < ?", from, to).
			Count(&n).Error
		return n, err
	}

	deltas := &KPIDeltas{}
	pairs := []struct {
		column string
		from1  time.Time
		from2  time.Time
		to2    time.Time
		out    *float64
	}{
		{"completed_at", weekAgo, twoWeeksAgo, weekAgo, &deltas.CompletedWeekOverWeek},
		{"completed_at", monthAgo, twoMonthsAgo, monthAgo, &deltas.CompletedMonthOverMonth},
		{"created_at", weekAgo, twoWeeksAgo, weekAgo, &deltas.CreatedWeekOverWeek},
		{"created_at", monthAgo, twoMonthsAgo, monthAgo, &deltas.CreatedMonthOverMonth},
	}
	for _, p := range pairs {
		current, err := count(p.column, p.from1, now)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", p.column, err)
		}
		previous, err := count(p.column, p.from2, p.to2)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", p.column, err)
		}
		*p.out = percentChange(previous, current)
	}

	return deltas, nil
}

func (s *AnalyticsService) requireMember(teamID, userID uint64) error {
	if _, err := s.teamRepo.FindMember(teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func (s *AnalyticsService) userLocation(userID uint64) *time.Location {
	user, err := s.userRepo.FindByID(userID)
	if err != nil || user.Preferences.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Preferences.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// percentChange reports growth from previous to current in percent. A zero
// baseline reads as +100% when anything happened, 0% otherwise.
func percentChange(previous, current int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round1(float64(current-previous) / float64(previous) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
