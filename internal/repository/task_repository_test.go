package repository_test

import (
	"context"
	"testing"
	"time"

	"planner/internal/model"
	"planner/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTaskRepository_AdvanceCategory(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	userID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE user_id = .* AND category = .* AND archived = .*`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), userID, model.CategoryTomorrow, false).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	// Act
	moved, err := taskRepo.AdvanceCategory(context.Background(), userID, model.CategoryTomorrow, model.CategoryToday, now)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 3, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_MaxOrderIndex_EmptyCategory(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	userID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(order_index\), 0\) FROM "tasks" WHERE user_id = .* AND category = .*`).
		WithArgs(userID, model.CategoryToday).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	// Act
	maxIndex, err := taskRepo.MaxOrderIndex(context.Background(), userID, model.CategoryToday)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 0, maxIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ExistsActiveTitled(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	userID := uuid.New()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE user_id = .* AND title = .* AND start_date = .* AND archived = .*`).
		WithArgs(userID, "Morning review", day, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	// Act
	exists, err := taskRepo.ExistsActiveTitled(context.Background(), userID, "Morning review", day)

	// Assert
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Delete_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "tasks" WHERE id = .*`).
		WithArgs(taskID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Act
	err := taskRepo.Delete(context.Background(), taskID)

	// Assert
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
