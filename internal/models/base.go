package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and timestamps shared by every table
type Base struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Course{},
		&Module{},
		&Lesson{},
		&Assignment{},
		&LiveSession{},
		&CoursePrerequisite{},
		&Enrollment{},
		&Progress{},
		&SessionAttendance{},
		&Skill{},
		&SkillPrerequisite{},
		&UserSkill{},
		&Achievement{},
		&UserAchievement{},
		&UserActivity{},
	}
}
