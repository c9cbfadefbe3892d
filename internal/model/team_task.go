package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamTask is a task with zero or more assignees. Completed is
// denormalized: true iff every assignee has completed.
type TeamTask struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TeamID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentNodeID *uuid.UUID `gorm:"type:uuid;index"`
	Title        string     `gorm:"not null"`
	Description  string
	Completed    bool       `gorm:"not null;default:false"`
	DueDate      *time.Time `gorm:"type:date"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t *TeamTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaskAssignee holds one member's completion state for a team task.
type TaskAssignee struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamTaskID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_task_assignee"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_task_assignee"`
	Completed   bool      `gorm:"not null;default:false"`
	CompletedAt *time.Time
	CreatedAt   time.Time
}

func (a *TaskAssignee) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
