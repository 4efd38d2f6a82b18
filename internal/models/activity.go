package models

import (
	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityCourseEnrollment       ActivityType = "COURSE_ENROLLMENT"
	ActivityEnrollmentStatusChange ActivityType = "ENROLLMENT_STATUS_CHANGE"
	ActivityCourseCompletion       ActivityType = "COURSE_COMPLETION"
	ActivityCertificate            ActivityType = "CERTIFICATE"
	ActivityLessonCompletion       ActivityType = "LESSON_COMPLETION"
	ActivityAssignmentCompletion   ActivityType = "ASSIGNMENT_COMPLETION"
	ActivitySessionAttendance      ActivityType = "SESSION_ATTENDANCE"
	ActivitySkillVerification      ActivityType = "SKILL_VERIFICATION"
	ActivityAchievementEarned      ActivityType = "ACHIEVEMENT_EARNED"
	ActivityPrerequisiteChange     ActivityType = "PREREQUISITE_CHANGE"
)

// UserActivity is the append-only audit trail
type UserActivity struct {
	Base
	UserID       string         `json:"user_id" gorm:"not null;size:255;index:idx_activity_user_type"`
	ActivityType ActivityType   `json:"activity_type" gorm:"size:50;not null;index:idx_activity_user_type"`
	Detail       datatypes.JSON `json:"detail" gorm:"type:jsonb"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
