package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

type enrollmentService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	dispatcher *EventDispatcher
}

func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, dispatcher *EventDispatcher) EnrollmentService {
	return &enrollmentService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		dispatcher: dispatcher,
	}
}

// Enroll creates the caller's enrollment: APPROVED for auto-enrollment courses, PENDING otherwise
func (s *enrollmentService) Enroll(ctx context.Context, courseID uuid.UUID, actor models.Actor) (*models.Enrollment, error) {
	s.logger.Info("Enrolling user", "user_id", actor.UserID, "course_id", courseID)

	var enrollment *models.Enrollment
	result := &DispatchResult{}
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		course, err := s.repo.Course().GetByID(ctx, tx, courseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to get course: %w", err)
		}
		if !course.IsActive {
			return ErrCourseInactive
		}

		if _, err := s.repo.Enrollment().GetByUserAndCourse(ctx, tx, actor.UserID, courseID); err == nil {
			return ErrAlreadyEnrolled
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check enrollment: %w", err)
		}

		if course.MaxParticipants != nil {
			count, err := s.repo.Enrollment().CountByCourse(ctx, tx, courseID)
			if err != nil {
				return err
			}
			if count >= int64(*course.MaxParticipants) {
				return ErrCourseFull
			}
		}

		if err := s.checkPrerequisites(ctx, tx, courseID, actor.UserID); err != nil {
			return err
		}

		status := models.EnrollmentPending
		if course.AutoEnrollment {
			status = models.EnrollmentApproved
		}
		enrollment = &models.Enrollment{
			UserID:     actor.UserID,
			CourseID:   courseID,
			Status:     status,
			EnrolledAt: time.Now().UTC(),
		}
		if err := s.repo.Enrollment().Create(ctx, tx, enrollment); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}

		detail := map[string]interface{}{
			"enrollment_id": enrollment.ID,
			"course_id":     courseID,
			"status":        status,
		}
		if err := recordActivity(ctx, tx, s.repo, actor.UserID, models.ActivityCourseEnrollment, detail); err != nil {
			return err
		}
		result.addEvents(events.NewEvent(events.EnrollmentCreated, actor.UserID, detail))
		result.touchCourse(courseID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, result)
	s.logger.Info("User enrolled successfully", "enrollment_id", enrollment.ID, "status", enrollment.Status)
	return enrollment, nil
}

func (s *enrollmentService) GetByID(ctx context.Context, id uuid.UUID, actor models.Actor) (*EnrollmentResponse, error) {
	enrollment, err := s.getAccessibleEnrollment(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	progress, err := s.repo.Progress().ListByEnrollment(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return &EnrollmentResponse{Enrollment: enrollment, Progress: progress}, nil
}

func (s *enrollmentService) List(ctx context.Context, params models.ListEnrollmentsParams, actor models.Actor) (*models.PaginatedResponse, error) {
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}

	// Participants only ever see their own enrollments
	if !actor.IsStaff() {
		params.UserID = &actor.UserID
	}

	enrollments, total, err := s.repo.Enrollment().List(ctx, s.db, params)
	if err != nil {
		return nil, err
	}

	page, size := params.Page, params.Size
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	return &models.PaginatedResponse{Items: enrollments, Total: total, Page: page, Size: size}, nil
}

// Transition applies a requested action through the dispatcher so milestones follow the status change
func (s *enrollmentService) Transition(ctx context.Context, id uuid.UUID, req *TransitionRequest, actor models.Actor) (*DispatchResult, error) {
	s.logger.Info("Transitioning enrollment", "enrollment_id", id, "action", req.Action, "actor_id", actor.UserID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	enrollment, err := s.getAccessibleEnrollment(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	action := EnrollmentAction(req.Action)
	switch action {
	case ActionApprove, ActionFail:
		if !actor.IsStaff() {
			return nil, NewPermissionError(actor.UserID, "enrollment", req.Action, "only trainers and admins can "+req.Action+" enrollments")
		}
	}
	if req.Grade != nil && action != ActionFail {
		return nil, NewValidationError("grade", "is only accepted with the fail action", *req.Grade)
	}

	return s.dispatcher.OnEnrollmentTransitionRequested(ctx, nil, enrollment.ID, action, TransitionOptions{
		ActorID: actor.UserID,
		Grade:   req.Grade,
		Trigger: "request:" + req.Action,
	})
}

// checkPrerequisites requires a COMPLETED enrollment in every prerequisite course
func (s *enrollmentService) checkPrerequisites(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, userID string) error {
	prerequisites, err := s.repo.Course().ListPrerequisites(ctx, tx, courseID)
	if err != nil {
		return err
	}

	var missing []string
	for _, prerequisite := range prerequisites {
		enrollment, err := s.repo.Enrollment().GetByUserAndCourse(ctx, tx, userID, prerequisite.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check prerequisite enrollment: %w", err)
		}
		if enrollment == nil || enrollment.Status != models.EnrollmentCompleted {
			missing = append(missing, prerequisite.Code)
		}
	}

	if len(missing) > 0 {
		return NewBusinessRuleError("prerequisites_not_met",
			"complete the prerequisite courses first",
			map[string]interface{}{"missing": missing})
	}
	return nil
}

func (s *enrollmentService) getAccessibleEnrollment(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Enrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if enrollment.UserID != actor.UserID && !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "enrollment", "read", "not the enrollment owner")
	}
	return enrollment, nil
}

func (s *enrollmentService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
