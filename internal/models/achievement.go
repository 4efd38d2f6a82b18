package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AchievementCounter names an aggregate a milestone rule is evaluated against
type AchievementCounter string

const (
	CounterCompletedEnrollments AchievementCounter = "completed_enrollments"
	CounterAttendedSessions     AchievementCounter = "attended_sessions"
	CounterHeldAchievements     AchievementCounter = "held_achievements"
	CounterAchievementPoints    AchievementCounter = "achievement_points"
)

// IsPointBased reports whether the counter depends on points of already awarded achievements
func (c AchievementCounter) IsPointBased() bool {
	return c == CounterAchievementPoints
}

func (c AchievementCounter) IsValid() bool {
	switch c {
	case CounterCompletedEnrollments, CounterAttendedSessions, CounterHeldAchievements, CounterAchievementPoints:
		return true
	default:
		return false
	}
}

type AchievementCriteria struct {
	Counter   AchievementCounter `json:"counter" yaml:"counter"`
	Threshold int64              `json:"threshold" yaml:"threshold"`
}

type Achievement struct {
	Base
	Code        string                                  `json:"code" gorm:"uniqueIndex;not null;size:100"`
	Name        string                                  `json:"name" gorm:"not null;size:200"`
	Description string                                  `json:"description" gorm:"type:text"`
	Category    string                                  `json:"category" gorm:"size:50;index"`
	Points      int                                     `json:"points" gorm:"not null;check:chk_achievement_points,points >= 0"`
	Criteria    datatypes.JSONType[AchievementCriteria] `json:"criteria" gorm:"type:jsonb"`
	IsActive    bool                                    `json:"is_active" gorm:"not null;index"`
}

// UserAchievement is an append-only award, unique per user and achievement
type UserAchievement struct {
	Base
	UserID        string         `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_achievement"`
	AchievementID uuid.UUID      `json:"achievement_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement;index"`
	AwardedAt     time.Time      `json:"awarded_at" gorm:"not null"`
	AwardedBy     *string        `json:"awarded_by" gorm:"size:255"`
	Evidence      datatypes.JSON `json:"evidence" gorm:"type:jsonb"`

	Achievement *Achievement `json:"achievement,omitempty" gorm:"foreignKey:AchievementID"`
}
