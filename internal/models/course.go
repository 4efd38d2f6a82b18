package models

import (
	"time"

	"github.com/google/uuid"
)

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "BEGINNER"
	DifficultyIntermediate DifficultyLevel = "INTERMEDIATE"
	DifficultyAdvanced     DifficultyLevel = "ADVANCED"
	DifficultyExpert       DifficultyLevel = "EXPERT"
)

type DeliveryMethod string

const (
	DeliverySelfPaced     DeliveryMethod = "SELF_PACED"
	DeliveryInstructorLed DeliveryMethod = "INSTRUCTOR_LED"
	DeliveryBlended       DeliveryMethod = "BLENDED"
	DeliveryLiveOnline    DeliveryMethod = "LIVE_ONLINE"
)

// SupportsLiveSessions reports whether sessions can be scheduled for the delivery method
func (d DeliveryMethod) SupportsLiveSessions() bool {
	switch d {
	case DeliveryInstructorLed, DeliveryBlended, DeliveryLiveOnline:
		return true
	default:
		return false
	}
}

type Course struct {
	Base
	Code                  string          `json:"code" gorm:"uniqueIndex;not null;size:50"`
	Title                 string          `json:"title" gorm:"not null;size:200"`
	Description           string          `json:"description" gorm:"type:text"`
	Category              string          `json:"category" gorm:"size:100;index"`
	Difficulty            DifficultyLevel `json:"difficulty" gorm:"size:20;not null"`
	DeliveryMethod        DeliveryMethod  `json:"delivery_method" gorm:"size:20;not null"`
	DurationHours         int             `json:"duration_hours" gorm:"not null;check:chk_course_duration,duration_hours > 0"`
	MaxParticipants       *int            `json:"max_participants"`
	IsCertificateProvided bool            `json:"is_certificate_provided" gorm:"not null"`
	AutoEnrollment        bool            `json:"auto_enrollment" gorm:"not null"`
	IsActive              bool            `json:"is_active" gorm:"not null;index"`
	CreatedBy             string          `json:"created_by" gorm:"size:255;index"`

	Modules     []Module     `json:"modules,omitempty" gorm:"foreignKey:CourseID"`
	Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:CourseID"`
}

type Module struct {
	Base
	CourseID      uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_module_course_position"`
	Title         string    `json:"title" gorm:"not null;size:200"`
	Description   string    `json:"description" gorm:"type:text"`
	Position      int       `json:"order" gorm:"not null;uniqueIndex:idx_module_course_position"`
	DurationHours int       `json:"duration_hours" gorm:"not null"`

	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:ModuleID"`
}

type Lesson struct {
	Base
	ModuleID        uuid.UUID `json:"module_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_lesson_module_position"`
	Title           string    `json:"title" gorm:"not null;size:200"`
	Content         string    `json:"content" gorm:"type:text"`
	Position        int       `json:"order" gorm:"not null;uniqueIndex:idx_lesson_module_position"`
	IsRequired      bool      `json:"is_required" gorm:"not null;index"`
	DurationMinutes int       `json:"duration_minutes"`
}

type Assignment struct {
	Base
	CourseID    uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"not null;size:200"`
	Description string     `json:"description" gorm:"type:text"`
	MaxScore    int        `json:"max_score" gorm:"not null"`
	DueDate     *time.Time `json:"due_date"`
}

type LiveSessionStatus string

const (
	SessionScheduled  LiveSessionStatus = "SCHEDULED"
	SessionInProgress LiveSessionStatus = "IN_PROGRESS"
	SessionCompleted  LiveSessionStatus = "COMPLETED"
	SessionCancelled  LiveSessionStatus = "CANCELLED"
)

type LiveSession struct {
	Base
	CourseID        uuid.UUID         `json:"course_id" gorm:"type:uuid;not null;index:idx_session_course_start"`
	Title           string            `json:"title" gorm:"not null;size:200"`
	InstructorID    string            `json:"instructor_id" gorm:"size:255;index"`
	StartTime       time.Time         `json:"start_time" gorm:"not null;index:idx_session_course_start"`
	EndTime         time.Time         `json:"end_time" gorm:"not null"`
	MaxParticipants *int              `json:"max_participants"`
	MeetingURL      string            `json:"meeting_url" gorm:"size:500"`
	Location        string            `json:"location" gorm:"size:200"`
	Status          LiveSessionStatus `json:"status" gorm:"size:20;not null"`
}

// CoursePrerequisite records that CourseID requires PrerequisiteID
type CoursePrerequisite struct {
	CourseID       uuid.UUID `json:"course_id" gorm:"type:uuid;primaryKey"`
	PrerequisiteID uuid.UUID `json:"prerequisite_id" gorm:"type:uuid;primaryKey;index"`
	CreatedBy      string    `json:"created_by" gorm:"size:255"`
	CreatedAt      time.Time `json:"created_at"`
}

func (CoursePrerequisite) TableName() string {
	return "course_prerequisites"
}
