package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "REGISTERED"
	AttendanceAttended   AttendanceStatus = "ATTENDED"
	AttendanceAbsent     AttendanceStatus = "ABSENT"
	AttendanceExcused    AttendanceStatus = "EXCUSED"
)

type SessionAttendance struct {
	Base
	SessionID                 uuid.UUID        `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:idx_attendance_session_user;index:idx_attendance_session_status"`
	UserID                    string           `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_attendance_session_user;index:idx_attendance_user_status"`
	Status                    AttendanceStatus `json:"status" gorm:"size:20;not null;index:idx_attendance_session_status;index:idx_attendance_user_status"`
	JoinTime                  *time.Time       `json:"join_time"`
	LeaveTime                 *time.Time       `json:"leave_time"`
	AttendanceDurationSeconds *int64           `json:"attendance_duration_seconds"`
	Feedback                  string           `json:"feedback" gorm:"type:text"`

	Session *LiveSession `json:"session,omitempty" gorm:"foreignKey:SessionID"`
}

func (SessionAttendance) TableName() string {
	return "session_attendance"
}

// DeriveDuration sets the attended duration when both join and leave times are known
func (a *SessionAttendance) DeriveDuration() {
	if a.JoinTime == nil || a.LeaveTime == nil {
		a.AttendanceDurationSeconds = nil
		return
	}
	seconds := int64(a.LeaveTime.Sub(*a.JoinTime) / time.Second)
	a.AttendanceDurationSeconds = &seconds
}
