package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

type attendanceService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	dispatcher *EventDispatcher
}

func NewAttendanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, dispatcher *EventDispatcher) AttendanceService {
	return &attendanceService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		dispatcher: dispatcher,
	}
}

// Record upserts attendance for (session, user) and evaluates milestones for the attendee
func (s *attendanceService) Record(ctx context.Context, sessionID uuid.UUID, req *AttendanceRecordRequest, actor models.Actor) (*AttendanceResponse, error) {
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	s.logger.Info("Recording attendance", "session_id", sessionID, "user_id", userID, "status", req.Status)

	if errors := s.validator.GetBusinessValidator().ValidateAttendance(req); len(errors) > 0 {
		return nil, errors
	}
	if userID != actor.UserID && !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "attendance", "record", "cannot record attendance for other users")
	}

	var attendance *models.SessionAttendance
	var dispatch *DispatchResult
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		session, err := s.repo.Course().GetSession(ctx, tx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}

		enrollment, err := s.repo.Enrollment().GetByUserAndCourse(ctx, tx, userID, session.CourseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return NewBusinessRuleError("not_enrolled", "user is not enrolled in the session's course",
					map[string]interface{}{"user_id": userID, "course_id": session.CourseID})
			}
			return fmt.Errorf("failed to get enrollment: %w", err)
		}
		if enrollment.Status == models.EnrollmentWithdrawn || enrollment.Status == models.EnrollmentFailed {
			return ErrEnrollmentClosed
		}

		attendance, err = s.repo.Attendance().GetBySessionAndUser(ctx, tx, sessionID, userID)
		isNew := false
		switch {
		case repositories.IsNotFoundError(err):
			isNew = true
			attendance = &models.SessionAttendance{SessionID: sessionID, UserID: userID}
		case err != nil:
			return fmt.Errorf("failed to get attendance: %w", err)
		}

		previous := attendance.Status
		attendance.Status = req.Status
		attendance.JoinTime = req.JoinTime
		attendance.LeaveTime = req.LeaveTime
		if req.Feedback != "" {
			attendance.Feedback = req.Feedback
		}
		attendance.DeriveDuration()

		if isNew {
			err = s.repo.Attendance().Create(ctx, tx, attendance)
		} else {
			err = s.repo.Attendance().Update(ctx, tx, attendance)
		}
		if err != nil {
			return fmt.Errorf("failed to save attendance: %w", err)
		}

		detail := map[string]interface{}{
			"attendance_id": attendance.ID,
			"session_id":    sessionID,
			"course_id":     session.CourseID,
			"status":        attendance.Status,
		}
		if attendance.AttendanceDurationSeconds != nil {
			detail["duration_seconds"] = *attendance.AttendanceDurationSeconds
		}
		if attendance.Status == models.AttendanceAttended && previous != models.AttendanceAttended {
			if err := recordActivity(ctx, tx, s.repo, userID, models.ActivitySessionAttendance, detail); err != nil {
				return err
			}
		}

		dispatch, err = s.dispatcher.OnAttendanceSaved(ctx, tx, attendance.ID)
		if err != nil {
			return err
		}
		dispatch.addEvents(events.NewEvent(events.AttendanceRecorded, userID, detail))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, dispatch)
	return &AttendanceResponse{Attendance: attendance, Dispatch: dispatch}, nil
}

func (s *attendanceService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
