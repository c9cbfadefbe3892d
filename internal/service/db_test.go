package service_test

import (
	"context"
	"testing"
	"time"

	"planner/internal/model"
	"planner/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
// A single connection keeps the database alive for the test's duration.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.TaskTemplate{},
		&model.UserPerformance{},
		&model.Team{},
		&model.TeamMember{},
		&model.Mindmap{},
		&model.MindmapNode{},
		&model.TeamTask{},
		&model.TaskAssignee{},
		&model.Notification{},
	))

	return db
}

func createTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := &model.User{
		Email:          uuid.NewString() + "@example.com",
		HashedPassword: "hashed",
		Name:           "Test User",
	}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))
	return user.ID
}

// seedLedger writes a ledger row for the given day, arming the rollover
// guard for the following day.
func seedLedger(t *testing.T, db *gorm.DB, userID uuid.UUID, day time.Time, completed, streak int) {
	t.Helper()
	perf := &model.UserPerformance{
		UserID:         userID,
		Date:           day,
		TasksCompleted: completed,
		StreakDays:     streak,
	}
	require.NoError(t, repository.NewPerformanceRepository(db).Upsert(context.Background(), perf))
}

func createTask(t *testing.T, db *gorm.DB, task *model.Task) *model.Task {
	t.Helper()
	require.NoError(t, repository.NewTaskRepository(db).Create(context.Background(), task))
	return task
}

func getTask(t *testing.T, db *gorm.DB, id uuid.UUID) *model.Task {
	t.Helper()
	task, err := repository.NewTaskRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return task
}
