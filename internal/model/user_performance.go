package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserPerformance is one ledger row per (user, civil day). It doubles as
// the rollover idempotency marker: rollover runs only when yesterday's row
// exists and today's does not.
type UserPerformance struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_perf_day"`
	Date             time.Time `gorm:"type:date;not null;uniqueIndex:idx_user_perf_day"`
	TasksCompleted   int       `gorm:"not null;default:0"`
	TasksCreated     int       `gorm:"not null;default:0"`
	CompletionRate   int       `gorm:"not null;default:0"`
	StreakDays       int       `gorm:"not null;default:0"`
	TotalWorkSeconds int       `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *UserPerformance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
