package validator

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/training-service/internal/models"
)

// ===== CATALOG =====

type CourseCreateRequest struct {
	Code                  string                 `json:"code" validate:"required,course_code"`
	Title                 string                 `json:"title" validate:"required,min=1,max=200"`
	Description           string                 `json:"description" validate:"max=5000"`
	Category              string                 `json:"category" validate:"max=100"`
	Difficulty            models.DifficultyLevel `json:"difficulty" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	DeliveryMethod        models.DeliveryMethod  `json:"delivery_method" validate:"required,oneof=SELF_PACED INSTRUCTOR_LED BLENDED LIVE_ONLINE"`
	DurationHours         int                    `json:"duration_hours" validate:"required,min=1,max=10000"`
	MaxParticipants       *int                   `json:"max_participants" validate:"omitempty,min=1"`
	IsCertificateProvided bool                   `json:"is_certificate_provided"`
	AutoEnrollment        bool                   `json:"auto_enrollment"`
	IsActive              *bool                  `json:"is_active"`
}

type ModuleCreateRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=5000"`
	Order         int    `json:"order" validate:"min=0"`
	DurationHours int    `json:"duration_hours" validate:"min=0"`
}

type LessonCreateRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Content         string `json:"content"`
	Order           int    `json:"order" validate:"min=0"`
	IsRequired      *bool  `json:"is_required"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
}

type AssignmentCreateRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	MaxScore    int        `json:"max_score" validate:"required,min=1,max=1000"`
	DueDate     *time.Time `json:"due_date"`
}

type SessionCreateRequest struct {
	Title           string    `json:"title" validate:"required,max=200"`
	InstructorID    string    `json:"instructor_id" validate:"max=255"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required"`
	MaxParticipants *int      `json:"max_participants" validate:"omitempty,min=1"`
	MeetingURL      string    `json:"meeting_url" validate:"omitempty,url,max=500"`
	Location        string    `json:"location" validate:"max=200"`
}

// PrerequisiteRequest adds an edge: the path resource requires PrerequisiteID
type PrerequisiteRequest struct {
	PrerequisiteID uuid.UUID `json:"prerequisite_id" validate:"not_nil_uuid"`
}

// ===== ENROLLMENT & PROGRESS =====

type TransitionRequest struct {
	Action string   `json:"action" validate:"required,oneof=approve start withdraw fail"`
	Grade  *float64 `json:"grade" validate:"omitempty,min=0,max=100"`
}

// ProgressUpdateRequest records progress on one target. Exactly one of LessonID and
// AssignmentID must be set; the engine rejects anything else as a structural violation.
type ProgressUpdateRequest struct {
	LessonID         *uuid.UUID            `json:"lesson_id"`
	AssignmentID     *uuid.UUID            `json:"assignment_id"`
	Status           models.ProgressStatus `json:"status" validate:"required,oneof=NOT_STARTED IN_PROGRESS COMPLETED FAILED"`
	Score            *float64              `json:"score" validate:"omitempty,min=0"`
	TimeSpentSeconds int64                 `json:"time_spent_seconds" validate:"min=0"`
}

type AttendanceRecordRequest struct {
	// UserID defaults to the caller; staff may record for others
	UserID    string                  `json:"user_id" validate:"max=255"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=REGISTERED ATTENDED ABSENT EXCUSED"`
	JoinTime  *time.Time              `json:"join_time"`
	LeaveTime *time.Time              `json:"leave_time"`
	Feedback  string                  `json:"feedback" validate:"max=2000"`
}

// ===== SKILLS & ACHIEVEMENTS =====

type SkillCreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type UserSkillDeclareRequest struct {
	Proficiency models.ProficiencyLevel `json:"proficiency" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
}

type ManualAwardRequest struct {
	AchievementCode string `json:"achievement_code" validate:"required,max=100"`
	Reason          string `json:"reason" validate:"max=500"`
}
