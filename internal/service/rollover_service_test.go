package service_test

import (
	"context"
	"testing"
	"time"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestRollover_AdvancesTomorrowAndIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
	task := createTask(t, db, &model.Task{
		UserID:   userID,
		Title:    "Write report",
		Category: model.CategoryTomorrow,
		Priority: model.PriorityMedium,
	})

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)
	assert.Equal(t, model.CategoryToday, getTask(t, db, task.ID).Category)

	// Today's ledger row was written in the same transaction.
	entry, err := repository.NewPerformanceRepository(db).GetByUserAndDate(context.Background(), userID, clk.Today())
	require.NoError(t, err)
	require.NotNil(t, entry)

	// A second call on the same day is a no-op.
	res, err = svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, service.RolloverResult{}, res)
}

func TestRollover_SkippedWithoutLedgerHistory(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	task := createTask(t, db, &model.Task{
		UserID:   userID,
		Title:    "Write report",
		Category: model.CategoryTomorrow,
		Priority: model.PriorityMedium,
	})

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, service.RolloverResult{}, res)
	assert.Equal(t, model.CategoryTomorrow, getTask(t, db, task.ID).Category)

	entry, err := repository.NewPerformanceRepository(db).GetByUserAndDate(context.Background(), userID, clk.Today())
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRollover_CalendarPromotionIsTwoStage(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
	start := clk.Today()
	end := clk.Today().AddDate(0, 0, 5)
	task := createTask(t, db, &model.Task{
		UserID:    userID,
		Title:     "Conference prep",
		Category:  model.CategoryOther,
		Priority:  model.PriorityMedium,
		StartDate: &start,
		EndDate:   &end,
	})

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Promoted)
	assert.Equal(t, 0, res.Advanced)
	// Promotion lands in tomorrow, never straight into today.
	assert.Equal(t, model.CategoryTomorrow, getTask(t, db, task.ID).Category)

	// The next day's rollover advances it.
	clk.AdvanceDays(1)
	res, err = svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)
	assert.Equal(t, model.CategoryToday, getTask(t, db, task.ID).Category)
}

func TestRollover_ArchivesStaleCompletions(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)

	staleAt := monday.AddDate(0, 0, -3)
	stale := createTask(t, db, &model.Task{
		UserID:      userID,
		Title:       "Old chore",
		Category:    model.CategoryToday,
		Priority:    model.PriorityLow,
		Completed:   true,
		CompletedAt: &staleAt,
	})
	freshAt := monday.AddDate(0, 0, -1)
	fresh := createTask(t, db, &model.Task{
		UserID:      userID,
		Title:       "Recent win",
		Category:    model.CategoryToday,
		Priority:    model.PriorityLow,
		Completed:   true,
		CompletedAt: &freshAt,
	})

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived)

	archived := getTask(t, db, stale.ID)
	assert.True(t, archived.Archived)
	require.NotNil(t, archived.ArchivedAt)
	assert.True(t, archived.ArchivedAt.Equal(clock.Day(staleAt)))

	// Yesterday's completion stays visible for its grace window.
	assert.False(t, getTask(t, db, fresh.ID).Archived)
}

func TestRollover_MaterializesDailyTemplateWithDuplicateGuard(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
	templateRepo := repository.NewTaskTemplateRepository(db)
	require.NoError(t, templateRepo.Create(context.Background(), &model.TaskTemplate{
		UserID:     userID,
		Title:      "Morning review",
		Priority:   model.PriorityHigh,
		Category:   model.CategoryToday,
		RepeatType: model.RepeatDaily,
		IsActive:   true,
	}))

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)

	tasks, err := repository.NewTaskRepository(db).ListByCategory(context.Background(), userID, model.CategoryToday)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Morning review", tasks[0].Title)
	require.NotNil(t, tasks[0].StartDate)
	assert.True(t, tasks[0].StartDate.Equal(clk.Today()))
}

func TestRollover_DuplicateGuardSkipsExistingInstance(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
	require.NoError(t, repository.NewTaskTemplateRepository(db).Create(context.Background(), &model.TaskTemplate{
		UserID:     userID,
		Title:      "Morning review",
		RepeatType: model.RepeatDaily,
		IsActive:   true,
	}))

	today := clk.Today()
	createTask(t, db, &model.Task{
		UserID:    userID,
		Title:     "Morning review",
		Category:  model.CategoryToday,
		Priority:  model.PriorityMedium,
		StartDate: &today,
		EndDate:   &today,
	})

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)
}

func TestRollover_WeeklyTemplateFiresOnMondayOnly(t *testing.T) {
	cases := []struct {
		name     string
		at       time.Time
		expected int
	}{
		{"monday", monday, 1},
		{"tuesday", monday.AddDate(0, 0, 1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			userID := createTestUser(t, db)
			clk := clock.NewFixed(tc.at)
			svc := service.NewRolloverService(db, clk)

			seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
			require.NoError(t, repository.NewTaskTemplateRepository(db).Create(context.Background(), &model.TaskTemplate{
				UserID:     userID,
				Title:      "Standup notes",
				RepeatType: model.RepeatWeekly,
				IsActive:   true,
			}))

			res, err := svc.Run(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res.Generated)
		})
	}
}

func TestRollover_MonthlyTemplateFiresOnTheFirst(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC))
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
	require.NoError(t, repository.NewTaskTemplateRepository(db).Create(context.Background(), &model.TaskTemplate{
		UserID:     userID,
		Title:      "Pay rent",
		RepeatType: model.RepeatMonthly,
		IsActive:   true,
	}))

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
}

func TestRollover_InactiveTemplateIgnored(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db)
	clk := clock.NewFixed(monday)
	svc := service.NewRolloverService(db, clk)

	seedLedger(t, db, userID, clk.Today().AddDate(0, 0, -1), 0, 0)
	templateRepo := repository.NewTaskTemplateRepository(db)
	template := &model.TaskTemplate{
		UserID:     userID,
		Title:      "Paused habit",
		RepeatType: model.RepeatDaily,
		IsActive:   false,
	}
	require.NoError(t, templateRepo.Create(context.Background(), template))

	// The paused state must survive the insert unchanged.
	stored, err := templateRepo.GetByID(context.Background(), template.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	res, err := svc.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)
}
