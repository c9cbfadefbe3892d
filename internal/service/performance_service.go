package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"
)

// PerformanceService maintains the per-(user, day) ledger of completion
// statistics. Recomputation is a full rebuild of the day's row from task
// state — upsert semantics, never an accumulating log.
type PerformanceService struct {
	db  *gorm.DB
	clk clock.Clock
}

func NewPerformanceService(db *gorm.DB, clk clock.Clock) *PerformanceService {
	return &PerformanceService{db: db, clk: clk}
}

// UpdateDaily recomputes and upserts the ledger row for the given day.
// Safe to call after any task mutation and on every dashboard load.
func (s *PerformanceService) UpdateDaily(ctx context.Context, userID uuid.UUID, day time.Time) (*model.UserPerformance, error) {
	var perf *model.UserPerformance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := recomputeDailyPerformance(ctx, tx, s.clk, userID, day)
		perf = p
		return err
	})
	return perf, err
}

// UpdateToday is UpdateDaily for the clock's current day.
func (s *PerformanceService) UpdateToday(ctx context.Context, userID uuid.UUID) (*model.UserPerformance, error) {
	return s.UpdateDaily(ctx, userID, s.clk.Today())
}

// ListRecent returns the ledger rows for the last n days ending today.
func (s *PerformanceService) ListRecent(ctx context.Context, userID uuid.UUID, days int) ([]model.UserPerformance, error) {
	to := s.clk.Today()
	from := to.AddDate(0, 0, -(days - 1))
	return repository.NewPerformanceRepository(s.db).ListRange(ctx, userID, from, to)
}

// recomputeDailyPerformance rebuilds one ledger row inside the caller's
// transaction. Tasks are bucketed by civil day in the application time
// zone on this side of the database, so the same queries run on every
// backend.
func recomputeDailyPerformance(ctx context.Context, tx *gorm.DB, clk clock.Clock, userID uuid.UUID, day time.Time) (*model.UserPerformance, error) {
	taskRepo := repository.NewTaskRepository(tx)
	perfRepo := repository.NewPerformanceRepository(tx)

	tasks, err := taskRepo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := clk.Location()
	completed := 0
	created := 0
	totalSeconds := 0
	for _, task := range tasks {
		if clock.Day(task.CreatedAt.In(loc)).Equal(day) {
			created++
		}
		if task.Completed && task.CompletedAt != nil && clock.Day(task.CompletedAt.In(loc)).Equal(day) {
			completed++
			totalSeconds += task.TotalSeconds
		}
	}

	rate := 0
	if created > 0 {
		rate = int(math.Round(float64(completed) / float64(created) * 100))
	}

	streak, err := computeStreak(ctx, perfRepo, userID, day, completed)
	if err != nil {
		return nil, err
	}

	perf := &model.UserPerformance{
		UserID:           userID,
		Date:             day,
		TasksCompleted:   completed,
		TasksCreated:     created,
		CompletionRate:   rate,
		StreakDays:       streak,
		TotalWorkSeconds: totalSeconds,
	}
	if err := perfRepo.Upsert(ctx, perf); err != nil {
		return nil, err
	}
	return perf, nil
}

// computeStreak derives the streak from the ledger itself: a day with
// completions extends the previous day's streak, a day without one resets
// it. No task-history rescan is needed.
func computeStreak(ctx context.Context, perfRepo *repository.PerformanceRepository, userID uuid.UUID, day time.Time, completedToday int) (int, error) {
	if completedToday == 0 {
		return 0, nil
	}
	previous, err := perfRepo.GetByUserAndDate(ctx, userID, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	if previous == nil || previous.TasksCompleted == 0 {
		return 1, nil
	}
	return previous.StreakDays + 1, nil
}
