package service_test

import (
	"context"
	"testing"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformance_RateRoundsFromDayBuckets(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	now := clk.Now()
	for i, completed := range []bool{true, true, false} {
		// CreatedAt pinned to the fixed clock: the created-on-day bucket
		// must not depend on the wall clock the test runs under.
		task := &model.Task{
			UserID:    userID,
			Title:     "Task",
			Category:  model.CategoryToday,
			Priority:  model.PriorityMedium,
			Completed: completed,
			CreatedAt: now,
		}
		if completed {
			at := now
			task.CompletedAt = &at
			task.TotalSeconds = (i + 1) * 600
		}
		createTask(t, db, task)
	}

	perf, err := svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, perf.TasksCreated)
	assert.Equal(t, 2, perf.TasksCompleted)
	assert.Equal(t, 67, perf.CompletionRate)
	assert.Equal(t, 1800, perf.TotalWorkSeconds)
}

func TestPerformance_CompletionOnAnotherDayDoesNotCount(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	yesterday := monday.AddDate(0, 0, -1)
	createTask(t, db, &model.Task{
		UserID:      userID,
		Title:       "Finished yesterday",
		Category:    model.CategoryToday,
		Priority:    model.PriorityMedium,
		Completed:   true,
		CompletedAt: &yesterday,
		CreatedAt:   clk.Now(),
	})

	perf, err := svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, perf.TasksCompleted)
	// Created today, not completed today.
	assert.Equal(t, 1, perf.TasksCreated)
	assert.Equal(t, 0, perf.CompletionRate)
}

func TestPerformance_StreakExtendsFromPreviousDay(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 2, 4)

	now := clk.Now()
	createTask(t, db, &model.Task{
		UserID:      userID,
		Title:       "Keep it going",
		Category:    model.CategoryToday,
		Priority:    model.PriorityMedium,
		Completed:   true,
		CompletedAt: &now,
	})

	perf, err := svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 5, perf.StreakDays)
}

func TestPerformance_StreakRestartsAfterIdleDay(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	// Yesterday exists in the ledger but had no completions.
	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)

	now := clk.Now()
	createTask(t, db, &model.Task{
		UserID:      userID,
		Title:       "Back at it",
		Category:    model.CategoryToday,
		Priority:    model.PriorityMedium,
		Completed:   true,
		CompletedAt: &now,
	})

	perf, err := svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, perf.StreakDays)
}

func TestPerformance_StreakZeroWithoutCompletions(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 3, 7)

	perf, err := svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, perf.StreakDays)
}

func TestPerformance_UpdateIsAnUpsert(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	_, err := svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)

	now := clk.Now()
	createTask(t, db, &model.Task{
		UserID:      userID,
		Title:       "Late addition",
		Category:    model.CategoryToday,
		Priority:    model.PriorityMedium,
		Completed:   true,
		CompletedAt: &now,
	})
	_, err = svc.UpdateToday(context.Background(), userID)
	require.NoError(t, err)

	rows, err := svc.ListRecent(context.Background(), userID, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].TasksCompleted)
}

func TestPerformance_ListRecentReturnsWindowInOrder(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewPerformanceService(db, clk)

	for i := 9; i >= 0; i-- {
		seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -i), i%2, 0)
	}

	rows, err := svc.ListRecent(context.Background(), userID, 7)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].Date.Before(rows[i].Date))
	}
}
