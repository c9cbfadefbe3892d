package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/model"
)

type TeamTaskRepository struct {
	db *gorm.DB
}

func NewTeamTaskRepository(db *gorm.DB) *TeamTaskRepository {
	return &TeamTaskRepository{db: db}
}

func (r *TeamTaskRepository) Create(ctx context.Context, task *model.TeamTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TeamTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TeamTask, error) {
	var task model.TeamTask
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTeamTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

func (r *TeamTaskRepository) Update(ctx context.Context, task *model.TeamTask) error {
	result := r.db.WithContext(ctx).Save(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamTaskNotFound
	}
	return nil
}

// ListByNode retrieves the team tasks attached to a mindmap node as
// subtasks.
func (r *TeamTaskRepository) ListByNode(ctx context.Context, nodeID uuid.UUID) ([]model.TeamTask, error) {
	var tasks []model.TeamTask
	result := r.db.WithContext(ctx).Where("parent_node_id = ?", nodeID).Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

func (r *TeamTaskRepository) AddAssignee(ctx context.Context, assignee *model.TaskAssignee) error {
	return r.db.WithContext(ctx).Create(assignee).Error
}

// GetAssignee returns one member's assignment row, nil when the user is
// not assigned.
func (r *TeamTaskRepository) GetAssignee(ctx context.Context, teamTaskID, userID uuid.UUID) (*model.TaskAssignee, error) {
	var assignee model.TaskAssignee
	result := r.db.WithContext(ctx).
		Where("team_task_id = ? AND user_id = ?", teamTaskID, userID).
		First(&assignee)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &assignee, nil
}

func (r *TeamTaskRepository) ListAssignees(ctx context.Context, teamTaskID uuid.UUID) ([]model.TaskAssignee, error) {
	var assignees []model.TaskAssignee
	result := r.db.WithContext(ctx).Where("team_task_id = ?", teamTaskID).Find(&assignees)
	if result.Error != nil {
		return nil, result.Error
	}
	return assignees, nil
}

func (r *TeamTaskRepository) UpdateAssignee(ctx context.Context, assignee *model.TaskAssignee) error {
	result := r.db.WithContext(ctx).Save(assignee)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssigneeNotFound
	}
	return nil
}
