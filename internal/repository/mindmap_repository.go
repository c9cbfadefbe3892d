package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/model"
)

type MindmapRepository struct {
	db *gorm.DB
}

func NewMindmapRepository(db *gorm.DB) *MindmapRepository {
	return &MindmapRepository{db: db}
}

func (r *MindmapRepository) Create(ctx context.Context, mindmap *model.Mindmap) error {
	return r.db.WithContext(ctx).Create(mindmap).Error
}

func (r *MindmapRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Mindmap, error) {
	var mindmap model.Mindmap
	result := r.db.WithContext(ctx).First(&mindmap, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMindmapNotFound
		}
		return nil, result.Error
	}
	return &mindmap, nil
}

func (r *MindmapRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Mindmap, error) {
	var mindmaps []model.Mindmap
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&mindmaps)
	if result.Error != nil {
		return nil, result.Error
	}
	return mindmaps, nil
}

func (r *MindmapRepository) CreateNode(ctx context.Context, node *model.MindmapNode) error {
	return r.db.WithContext(ctx).Create(node).Error
}

func (r *MindmapRepository) GetNode(ctx context.Context, id uuid.UUID) (*model.MindmapNode, error) {
	var node model.MindmapNode
	result := r.db.WithContext(ctx).First(&node, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, result.Error
	}
	return &node, nil
}

func (r *MindmapRepository) UpdateNode(ctx context.Context, node *model.MindmapNode) error {
	result := r.db.WithContext(ctx).Save(node)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNodeNotFound
	}
	return nil
}

// ListChildren retrieves the direct children of a node. The parent edge is
// lookup-only; the child set is always derived by this query, never cached.
func (r *MindmapRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.MindmapNode, error) {
	var nodes []model.MindmapNode
	result := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Find(&nodes)
	if result.Error != nil {
		return nil, result.Error
	}
	return nodes, nil
}

func (r *MindmapRepository) ListNodes(ctx context.Context, mindmapID uuid.UUID) ([]model.MindmapNode, error) {
	var nodes []model.MindmapNode
	result := r.db.WithContext(ctx).Where("mindmap_id = ?", mindmapID).Find(&nodes)
	if result.Error != nil {
		return nil, result.Error
	}
	return nodes, nil
}

// DeleteNodeTree removes a node and, recursively, its descendants.
// Deletion cascades downward only.
func (r *MindmapRepository) DeleteNodeTree(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteNodeTree(tx, id)
	})
}

func deleteNodeTree(tx *gorm.DB, id uuid.UUID) error {
	var children []model.MindmapNode
	if err := tx.Where("parent_id = ?", id).Find(&children).Error; err != nil {
		return err
	}
	for _, child := range children {
		if err := deleteNodeTree(tx, child.ID); err != nil {
			return err
		}
	}
	result := tx.Delete(&model.MindmapNode{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNodeNotFound
	}
	return nil
}
