package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// TaskTemplate is a recurrence rule. Rollover instantiates one Task per
// matching calendar day; the template itself is only ever read by it.
type TaskTemplate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	Priority    string `gorm:"not null;default:'medium'"`
	Category    string `gorm:"not null;default:'other'"`
	RepeatType  string `gorm:"not null;default:'none';check:repeat_type IN ('none', 'daily', 'weekly', 'monthly')"`
	// No column default: a default would make gorm drop the field from
	// INSERTs when it is false, silently reactivating paused templates.
	IsActive bool `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *TaskTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func ValidRepeatType(r string) bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Instantiate builds the Task this template produces for the given day.
// Order index is assigned by the caller.
func (t *TaskTemplate) Instantiate(day time.Time) *Task {
	category := t.Category
	if !ValidCategory(category) {
		category = CategoryOther
	}
	return &Task{
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Category:    category,
		StartDate:   &day,
		EndDate:     &day,
	}
}
