package models

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentPending    EnrollmentStatus = "PENDING"
	EnrollmentApproved   EnrollmentStatus = "APPROVED"
	EnrollmentInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentWithdrawn  EnrollmentStatus = "WITHDRAWN"
	EnrollmentFailed     EnrollmentStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are allowed
func (s EnrollmentStatus) IsTerminal() bool {
	return s == EnrollmentCompleted || s == EnrollmentWithdrawn || s == EnrollmentFailed
}

type Enrollment struct {
	Base
	UserID                string           `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course;index:idx_enrollment_user_status"`
	CourseID              uuid.UUID        `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course;index"`
	Status                EnrollmentStatus `json:"status" gorm:"size:20;not null;index:idx_enrollment_user_status"`
	CompletionPercentage  int              `json:"completion_percentage" gorm:"not null;check:chk_enrollment_percentage,completion_percentage >= 0 AND completion_percentage <= 100"`
	Grade                 *float64         `json:"grade"`
	CertificateIssued     bool             `json:"certificate_issued" gorm:"not null"`
	CertificateIssuedAt   *time.Time       `json:"certificate_issued_at"`
	EnrolledAt            time.Time        `json:"enrolled_at" gorm:"not null"`
	StartedAt             *time.Time       `json:"started_at"`
	CompletedAt           *time.Time       `json:"completed_at"`
	CompletionTimeSeconds *int64           `json:"completion_time_seconds"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "NOT_STARTED"
	ProgressInProgress ProgressStatus = "IN_PROGRESS"
	ProgressCompleted  ProgressStatus = "COMPLETED"
	ProgressFailed     ProgressStatus = "FAILED"
)

// Progress is one lesson or assignment record inside an enrollment.
// Exactly one of LessonID and AssignmentID is set.
type Progress struct {
	Base
	EnrollmentID     uuid.UUID      `json:"enrollment_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_progress_enrollment_lesson;uniqueIndex:idx_progress_enrollment_assignment"`
	LessonID         *uuid.UUID     `json:"lesson_id" gorm:"type:uuid;uniqueIndex:idx_progress_enrollment_lesson;check:chk_progress_target,(lesson_id IS NULL) <> (assignment_id IS NULL)"`
	AssignmentID     *uuid.UUID     `json:"assignment_id" gorm:"type:uuid;uniqueIndex:idx_progress_enrollment_assignment"`
	Status           ProgressStatus `json:"status" gorm:"size:20;not null;index"`
	Score            *float64       `json:"score"`
	AttemptCount     int            `json:"attempt_count" gorm:"not null"`
	TimeSpentSeconds int64          `json:"time_spent_seconds" gorm:"not null"`
	CompletedAt      *time.Time     `json:"completed_at"`
}

func (Progress) TableName() string {
	return "progress"
}

// HasSingleTarget reports whether the record points at exactly one lesson or assignment
func (p *Progress) HasSingleTarget() bool {
	return (p.LessonID != nil) != (p.AssignmentID != nil)
}
