package repository

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskhive/server/internal/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("todo", 3).
		AddRow("in-progress", 1).
		AddRow("completed", 7)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) as count FROM `tasks` WHERE assignee_id = ? AND archived = ?")).
		WithArgs(uint64(5), false).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(5, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 3, counts[models.TaskStatusTodo])
	assert.EqualValues(t, 1, counts[models.TaskStatusInProgress])
	assert.EqualValues(t, 7, counts[models.TaskStatusCompleted])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus_TeamScoped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	teamID := uint64(9)
	rows := sqlmock.NewRows([]string{"status", "count"}).AddRow("todo", 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) as count FROM `tasks` WHERE (assignee_id = ? AND archived = ?) AND team_id = ?")).
		WithArgs(uint64(5), false, teamID).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(5, &teamID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.TaskStatusTodo])
	assert.NoError(t, mock.ExpectationsWereMet())
}
