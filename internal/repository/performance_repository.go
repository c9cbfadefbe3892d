package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planner/internal/model"
)

type PerformanceRepository struct {
	db *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// GetByUserAndDate returns the ledger row for one day, nil when absent.
func (r *PerformanceRepository) GetByUserAndDate(ctx context.Context, userID uuid.UUID, day time.Time) (*model.UserPerformance, error) {
	var perf model.UserPerformance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).
		First(&perf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perf, nil
}

// Upsert writes a ledger row with idempotent per-day semantics: the
// unique (user_id, date) row is created on first write and overwritten on
// every recomputation.
func (r *PerformanceRepository) Upsert(ctx context.Context, perf *model.UserPerformance) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tasks_completed", "tasks_created", "completion_rate",
			"streak_days", "total_work_seconds", "updated_at",
		}),
	}).Create(perf).Error
}

// ListRange retrieves ledger rows within [from, to], oldest first.
func (r *PerformanceRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.UserPerformance, error) {
	var entries []model.UserPerformance
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}
