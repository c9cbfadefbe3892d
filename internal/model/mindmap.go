package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mindmap is a goal tree. Personal maps have UserID set; team maps have
// TeamID set.
type Mindmap struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title     string     `gorm:"not null"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"`
	TeamID    *uuid.UUID `gorm:"type:uuid;index"`
	Date      *time.Time `gorm:"type:date"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Mindmap) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MindmapNode is a tree node. Progress is a write-through cache maintained
// by the progress aggregator; Completed is manually settable on leaves
// that carry no tasks. Parent linkage is a lookup edge only — children are
// found by query.
type MindmapNode struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MindmapID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	Title       string     `gorm:"not null"`
	Description string
	PositionX   int
	PositionY   int
	Completed   bool `gorm:"not null;default:false"`
	Progress    int  `gorm:"not null;default:0"`
	IsTask      bool `gorm:"not null;default:false"`
	TaskID      *uuid.UUID `gorm:"type:uuid"`
	TeamTaskID  *uuid.UUID `gorm:"type:uuid"`
	DueDate     *time.Time `gorm:"type:date"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (n *MindmapNode) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
