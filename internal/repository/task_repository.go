package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// Update saves an existing task
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Save(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task by its ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListByCategory retrieves the user's non-archived tasks in one category,
// in manual order.
func (r *TaskRepository) ListByCategory(ctx context.Context, userID uuid.UUID, category string) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND archived = ?", userID, category, false).
		Order("order_index").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// ListAll retrieves every task of the user, archived included. Ledger
// recomputation buckets them by day on the application side.
func (r *TaskRepository) ListAll(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// ListCompletedUnarchived retrieves completed tasks not yet archived.
func (r *TaskRepository) ListCompletedUnarchived(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND archived = ?", userID, true, false).
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// AdvanceCategory bulk-moves the user's non-archived tasks from one
// category to another and returns how many moved.
func (r *TaskRepository) AdvanceCategory(ctx context.Context, userID uuid.UUID, from, to string, now time.Time) (int, error) {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND category = ? AND archived = ?", userID, from, false).
		Updates(map[string]interface{}{"category": to, "updated_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// PromoteCalendarDue bulk-moves non-archived "other" tasks whose date
// range contains the given day into "tomorrow" and returns how many
// moved.
func (r *TaskRepository) PromoteCalendarDue(ctx context.Context, userID uuid.UUID, day, now time.Time) (int, error) {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND category = ? AND archived = ? AND start_date <= ? AND end_date >= ?",
			userID, model.CategoryOther, false, day, day).
		Updates(map[string]interface{}{"category": model.CategoryTomorrow, "updated_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ExistsActiveTitled reports whether a non-archived task with this exact
// title starting on the given day already exists. Rollover's template
// duplicate guard.
func (r *TaskRepository) ExistsActiveTitled(ctx context.Context, userID uuid.UUID, title string, day time.Time) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND title = ? AND start_date = ? AND archived = ?", userID, title, day, false).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// MaxOrderIndex returns the highest order_index within the user's
// category, 0 when the category is empty.
func (r *TaskRepository) MaxOrderIndex(ctx context.Context, userID uuid.UUID, category string) (int, error) {
	var maxIndex int
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND category = ?", userID, category).
		Select("COALESCE(MAX(order_index), 0)").
		Scan(&maxIndex)
	if result.Error != nil {
		return 0, result.Error
	}
	return maxIndex, nil
}

// ListByCardNode retrieves the non-archived personal tasks attached to a
// task-card node.
func (r *TaskRepository) ListByCardNode(ctx context.Context, nodeID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Where("task_card_node_id = ? AND archived = ?", nodeID, false).
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// GetByTeamTaskAndUser finds the personal task mirroring a team task for
// one member.
func (r *TaskRepository) GetByTeamTaskAndUser(ctx context.Context, teamTaskID, userID uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).
		Where("team_task_id = ? AND user_id = ?", teamTaskID, userID).
		First(&task)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// CountActiveWhere counts the user's non-archived tasks matching one extra
// column filter (priority/category breakdowns on the dashboard).
func (r *TaskRepository) CountActiveWhere(ctx context.Context, userID uuid.UUID, column, value string) (int, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND archived = ?", userID, false).
		Where(column+" = ?", value).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(count), nil
}
