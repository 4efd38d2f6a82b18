package models

import (
	"time"

	"github.com/google/uuid"
)

type ProficiencyLevel string

const (
	ProficiencyBeginner     ProficiencyLevel = "BEGINNER"
	ProficiencyIntermediate ProficiencyLevel = "INTERMEDIATE"
	ProficiencyAdvanced     ProficiencyLevel = "ADVANCED"
	ProficiencyExpert       ProficiencyLevel = "EXPERT"
)

// CanVerifyOthers reports whether a verified holder of this level may verify peers
func (p ProficiencyLevel) CanVerifyOthers() bool {
	return p == ProficiencyAdvanced || p == ProficiencyExpert
}

type Skill struct {
	Base
	Name        string `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Category    string `json:"category" gorm:"not null;size:100;index"`
	Description string `json:"description" gorm:"type:text"`
}

// SkillPrerequisite records that SkillID requires PrerequisiteID
type SkillPrerequisite struct {
	SkillID        uuid.UUID `json:"skill_id" gorm:"type:uuid;primaryKey"`
	PrerequisiteID uuid.UUID `json:"prerequisite_id" gorm:"type:uuid;primaryKey;index"`
	CreatedBy      string    `json:"created_by" gorm:"size:255"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SkillPrerequisite) TableName() string {
	return "skill_prerequisites"
}

type UserSkill struct {
	Base
	UserID      string           `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_skill"`
	SkillID     uuid.UUID        `json:"skill_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_skill;index"`
	Proficiency ProficiencyLevel `json:"proficiency" gorm:"size:20;not null"`
	IsVerified  bool             `json:"is_verified" gorm:"not null"`
	VerifiedBy  *string          `json:"verified_by" gorm:"size:255"`
	VerifiedAt  *time.Time       `json:"verified_at"`

	Skill *Skill `json:"skill,omitempty" gorm:"foreignKey:SkillID"`
}
