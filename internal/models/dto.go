package models

import (
	"github.com/google/uuid"
)

// ===== PAGINATION & FILTERING =====

type ListEnrollmentsParams struct {
	CourseID *uuid.UUID        `form:"course_id"`
	UserID   *string           `form:"user_id"`
	Status   *EnrollmentStatus `form:"status"`
	Page     int               `form:"page" validate:"omitempty,min=1"`
	Size     int               `form:"size" validate:"omitempty,min=1,max=100"`
}

type PaginatedResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// ===== STATISTICS =====

// CourseProgressOverview mirrors the per-course enrollment rollup
type CourseProgressOverview struct {
	CourseID          uuid.UUID `json:"course_id"`
	CourseCode        string    `json:"course_code"`
	TotalEnrolled     int64     `json:"total_enrolled"`
	Completed         int64     `json:"completed"`
	InProgress        int64     `json:"in_progress"`
	Withdrawn         int64     `json:"withdrawn"`
	Failed            int64     `json:"failed"`
	CompletionRate    float64   `json:"completion_rate"`
	AveragePercentage float64   `json:"average_percentage"`
}

// UserCounters are the aggregates milestone rules are evaluated against
type UserCounters struct {
	CompletedEnrollments int64 `json:"completed_enrollments"`
	AttendedSessions     int64 `json:"attended_sessions"`
	HeldAchievements     int64 `json:"held_achievements"`
	AchievementPoints    int64 `json:"achievement_points"`
}

// Value returns the counter named by c
func (u UserCounters) Value(c AchievementCounter) int64 {
	switch c {
	case CounterCompletedEnrollments:
		return u.CompletedEnrollments
	case CounterAttendedSessions:
		return u.AttendedSessions
	case CounterHeldAchievements:
		return u.HeldAchievements
	case CounterAchievementPoints:
		return u.AchievementPoints
	default:
		return 0
	}
}

type UserAchievementSummary struct {
	UserID       string             `json:"user_id"`
	Counters     UserCounters       `json:"counters"`
	Achievements []*UserAchievement `json:"achievements"`
}

// EnrollmentReportRow is one line of the course progress export
type EnrollmentReportRow struct {
	EnrollmentID         uuid.UUID        `json:"enrollment_id"`
	UserID               string           `json:"user_id"`
	Status               EnrollmentStatus `json:"status"`
	CompletionPercentage int              `json:"completion_percentage"`
	Grade                *float64         `json:"grade"`
	CertificateIssued    bool             `json:"certificate_issued"`
	EnrolledAt           string           `json:"enrolled_at"`
	CompletedAt          string           `json:"completed_at"`
}
