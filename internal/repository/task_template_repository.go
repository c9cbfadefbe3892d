package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/model"
)

type TaskTemplateRepository struct {
	db *gorm.DB
}

func NewTaskTemplateRepository(db *gorm.DB) *TaskTemplateRepository {
	return &TaskTemplateRepository{db: db}
}

func (r *TaskTemplateRepository) Create(ctx context.Context, template *model.TaskTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *TaskTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskTemplate, error) {
	var template model.TaskTemplate
	result := r.db.WithContext(ctx).First(&template, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, result.Error
	}
	return &template, nil
}

func (r *TaskTemplateRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&templates)
	if result.Error != nil {
		return nil, result.Error
	}
	return templates, nil
}

// ListActiveRecurring retrieves the user's active templates with a repeat
// rule. Rollover's template materialization input.
func (r *TaskTemplateRepository) ListActiveRecurring(ctx context.Context, userID uuid.UUID) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND repeat_type <> ?", userID, true, model.RepeatNone).
		Find(&templates)
	if result.Error != nil {
		return nil, result.Error
	}
	return templates, nil
}

func (r *TaskTemplateRepository) Update(ctx context.Context, template *model.TaskTemplate) error {
	result := r.db.WithContext(ctx).Save(template)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *TaskTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.TaskTemplate{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
