package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task categories form the scheduling ladder advanced by rollover:
// other → tomorrow → today. Manual moves may set any category directly.
const (
	CategoryToday    = "today"
	CategoryTomorrow = "tomorrow"
	CategoryOther    = "other"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a unit of work owned by exactly one user. Relations are held as
// plain id columns; derived views (card tasks, assignee tasks) are
// resolved by queries.
type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	Completed   bool `gorm:"not null;default:false"`
	CompletedAt *time.Time
	Category    string     `gorm:"not null;default:'other';check:category IN ('today', 'tomorrow', 'other')"`
	Priority    string     `gorm:"not null;default:'medium'"`
	StartDate   *time.Time `gorm:"type:date;index"`
	EndDate     *time.Time `gorm:"type:date"`
	OrderIndex  int        `gorm:"not null;default:0"`
	Archived    bool       `gorm:"not null;default:false;index"`
	ArchivedAt  *time.Time `gorm:"type:date"`

	IsTracking        bool `gorm:"not null;default:false"`
	TrackingStartTime *time.Time
	TotalSeconds      int `gorm:"not null;default:0"`

	TeamTaskID     *uuid.UUID `gorm:"type:uuid;index"`
	TaskCardNodeID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func ValidCategory(c string) bool {
	return c == CategoryToday || c == CategoryTomorrow || c == CategoryOther
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
