package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"
)

// RolloverResult reports how many tasks each rollover step touched.
type RolloverResult struct {
	Advanced  int `json:"advanced"`
	Promoted  int `json:"promoted"`
	Archived  int `json:"archived"`
	Generated int `json:"generated"`
}

// RolloverService performs the once-per-day-per-user batch transition:
// template materialization, archival of stale completions, tomorrow→today
// advancement and calendar promotion. The performance ledger doubles as
// the idempotency marker — rollover is eligible only when yesterday's
// ledger row exists and today's does not, and it writes today's row in
// the same transaction.
type RolloverService struct {
	db  *gorm.DB
	clk clock.Clock
}

func NewRolloverService(db *gorm.DB, clk clock.Clock) *RolloverService {
	return &RolloverService{db: db, clk: clk}
}

// Run executes the daily rollover for one user. When the ledger guard
// rejects the run the result is all zeros and no row is touched.
func (s *RolloverService) Run(ctx context.Context, userID uuid.UUID) (RolloverResult, error) {
	today := s.clk.Today()
	yesterday := today.AddDate(0, 0, -1)
	now := s.clk.Now()

	var res RolloverResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perfRepo := repository.NewPerformanceRepository(tx)

		todayEntry, err := perfRepo.GetByUserAndDate(ctx, userID, today)
		if err != nil {
			return err
		}
		if todayEntry != nil {
			// Already ran today.
			return nil
		}
		yesterdayEntry, err := perfRepo.GetByUserAndDate(ctx, userID, yesterday)
		if err != nil {
			return err
		}
		if yesterdayEntry == nil {
			// The calendar day has not genuinely advanced for this user
			// (first visit, or no ledger history yet).
			return nil
		}

		taskRepo := repository.NewTaskRepository(tx)
		templateRepo := repository.NewTaskTemplateRepository(tx)

		generated, err := s.materializeTemplates(ctx, taskRepo, templateRepo, userID, today)
		if err != nil {
			return err
		}
		res.Generated = generated

		archived, err := s.archiveStaleCompletions(ctx, taskRepo, userID, today)
		if err != nil {
			return err
		}
		res.Archived = archived

		advanced, err := taskRepo.AdvanceCategory(ctx, userID, model.CategoryTomorrow, model.CategoryToday, now)
		if err != nil {
			return err
		}
		res.Advanced = advanced

		promoted, err := taskRepo.PromoteCalendarDue(ctx, userID, today, now)
		if err != nil {
			return err
		}
		res.Promoted = promoted

		// Writing today's ledger row is what arms the guard: a second
		// call on the same day short-circuits above with zero counts.
		_, err = recomputeDailyPerformance(ctx, tx, s.clk, userID, today)
		return err
	})
	return res, err
}

// materializeTemplates instantiates tasks from active recurring templates
// eligible today: daily always, weekly on Mondays, monthly on the 1st.
func (s *RolloverService) materializeTemplates(
	ctx context.Context,
	taskRepo *repository.TaskRepository,
	templateRepo *repository.TaskTemplateRepository,
	userID uuid.UUID,
	today time.Time,
) (int, error) {
	templates, err := templateRepo.ListActiveRecurring(ctx, userID)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, template := range templates {
		eligible := false
		switch template.RepeatType {
		case model.RepeatDaily:
			eligible = true
		case model.RepeatWeekly:
			eligible = today.Weekday() == time.Monday
		case model.RepeatMonthly:
			eligible = today.Day() == 1
		}
		if !eligible {
			continue
		}

		// One task per template per day, even across repeated runs.
		exists, err := taskRepo.ExistsActiveTitled(ctx, userID, template.Title, today)
		if err != nil {
			return generated, err
		}
		if exists {
			continue
		}

		task := template.Instantiate(today)
		maxIndex, err := taskRepo.MaxOrderIndex(ctx, userID, task.Category)
		if err != nil {
			return generated, err
		}
		task.OrderIndex = maxIndex + 1
		if err := taskRepo.Create(ctx, task); err != nil {
			return generated, err
		}
		generated++
	}
	return generated, nil
}

// archiveStaleCompletions archives completed tasks whose effective
// completion day is two or more days old. The two-day grace window keeps
// yesterday's completions visible.
func (s *RolloverService) archiveStaleCompletions(
	ctx context.Context,
	taskRepo *repository.TaskRepository,
	userID uuid.UUID,
	today time.Time,
) (int, error) {
	completed, err := taskRepo.ListCompletedUnarchived(ctx, userID)
	if err != nil {
		return 0, err
	}

	cutoff := today.AddDate(0, 0, -2)
	loc := s.clk.Location()
	archived := 0
	for i := range completed {
		task := &completed[i]

		effective := cutoff
		if task.CompletedAt != nil {
			effective = clock.Day(task.CompletedAt.In(loc))
		} else if !task.CreatedAt.IsZero() {
			effective = clock.Day(task.CreatedAt.In(loc))
		}
		if effective.After(cutoff) {
			continue
		}

		task.Archived = true
		task.ArchivedAt = &effective
		if err := taskRepo.Update(ctx, task); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

