package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

type courseService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	dispatcher *EventDispatcher
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, dispatcher *EventDispatcher) CourseService {
	return &courseService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		dispatcher: dispatcher,
	}
}

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, actor models.Actor) (*models.Course, error) {
	s.logger.Info("Creating course", "creator_id", actor.UserID, "code", req.Code)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "course", "create", "only trainers and admins can create courses")
	}

	course := &models.Course{
		Code:                  req.Code,
		Title:                 req.Title,
		Description:           req.Description,
		Category:              req.Category,
		Difficulty:            req.Difficulty,
		DeliveryMethod:        req.DeliveryMethod,
		DurationHours:         req.DurationHours,
		MaxParticipants:       req.MaxParticipants,
		IsCertificateProvided: req.IsCertificateProvided,
		AutoEnrollment:        req.AutoEnrollment,
		IsActive:              true,
		CreatedBy:             actor.UserID,
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.Course().ExistsByCode(ctx, tx, req.Code)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateCode
		}

		if err := s.repo.Course().Create(ctx, tx, course); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("failed to create course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Course created successfully", "course_id", course.ID)
	return course, nil
}

func (s *courseService) GetByID(ctx context.Context, id uuid.UUID) (*CourseResponse, error) {
	course, err := s.repo.Course().GetByIDWithContent(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	prerequisites, err := s.repo.Course().ListPrerequisites(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.repo.Enrollment().CountByCourse(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return &CourseResponse{Course: course, Prerequisites: prerequisites, Enrolled: enrolled}, nil
}

func (s *courseService) AddModule(ctx context.Context, courseID uuid.UUID, req *CreateModuleRequest, actor models.Actor) (*models.Module, error) {
	s.logger.Info("Adding module", "course_id", courseID, "order", req.Order)

	var module *models.Module
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		course, err := s.getManagedCourse(ctx, tx, courseID, actor)
		if err != nil {
			return err
		}

		if errors := s.validator.GetBusinessValidator().ValidateModuleCreate(req, course); len(errors) > 0 {
			return errors
		}

		taken, err := s.repo.Course().ModulePositionTaken(ctx, tx, courseID, req.Order)
		if err != nil {
			return err
		}
		if taken {
			return ErrPositionTaken
		}

		module = &models.Module{
			CourseID:      courseID,
			Title:         req.Title,
			Description:   req.Description,
			Position:      req.Order,
			DurationHours: req.DurationHours,
		}
		if err := s.repo.Course().CreateModule(ctx, tx, module); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrPositionTaken
			}
			return fmt.Errorf("failed to create module: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return module, nil
}

func (s *courseService) AddLesson(ctx context.Context, moduleID uuid.UUID, req *CreateLessonRequest, actor models.Actor) (*models.Lesson, error) {
	s.logger.Info("Adding lesson", "module_id", moduleID, "order", req.Order)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var lesson *models.Lesson
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		module, err := s.repo.Course().GetModule(ctx, tx, moduleID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrModuleNotFound
			}
			return fmt.Errorf("failed to get module: %w", err)
		}
		if _, err := s.getManagedCourse(ctx, tx, module.CourseID, actor); err != nil {
			return err
		}

		taken, err := s.repo.Course().LessonPositionTaken(ctx, tx, moduleID, req.Order)
		if err != nil {
			return err
		}
		if taken {
			return ErrPositionTaken
		}

		lesson = &models.Lesson{
			ModuleID:        moduleID,
			Title:           req.Title,
			Content:         req.Content,
			Position:        req.Order,
			IsRequired:      true,
			DurationMinutes: req.DurationMinutes,
		}
		if req.IsRequired != nil {
			lesson.IsRequired = *req.IsRequired
		}
		if err := s.repo.Course().CreateLesson(ctx, tx, lesson); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrPositionTaken
			}
			return fmt.Errorf("failed to create lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lesson, nil
}

func (s *courseService) AddAssignment(ctx context.Context, courseID uuid.UUID, req *CreateAssignmentRequest, actor models.Actor) (*models.Assignment, error) {
	s.logger.Info("Adding assignment", "course_id", courseID)

	if errors := s.validator.GetBusinessValidator().ValidateAssignmentCreate(req, time.Now()); len(errors) > 0 {
		return nil, errors
	}

	var assignment *models.Assignment
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.getManagedCourse(ctx, tx, courseID, actor); err != nil {
			return err
		}

		assignment = &models.Assignment{
			CourseID:    courseID,
			Title:       req.Title,
			Description: req.Description,
			MaxScore:    req.MaxScore,
			DueDate:     req.DueDate,
		}
		if err := s.repo.Course().CreateAssignment(ctx, tx, assignment); err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assignment, nil
}

func (s *courseService) AddSession(ctx context.Context, courseID uuid.UUID, req *CreateSessionRequest, actor models.Actor) (*models.LiveSession, error) {
	s.logger.Info("Scheduling live session", "course_id", courseID, "start_time", req.StartTime)

	var session *models.LiveSession
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		course, err := s.getManagedCourse(ctx, tx, courseID, actor)
		if err != nil {
			return err
		}

		if errors := s.validator.GetBusinessValidator().ValidateSessionCreate(req, course); len(errors) > 0 {
			return errors
		}

		session = &models.LiveSession{
			CourseID:        courseID,
			Title:           req.Title,
			InstructorID:    req.InstructorID,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			MaxParticipants: req.MaxParticipants,
			MeetingURL:      req.MeetingURL,
			Location:        req.Location,
			Status:          models.SessionScheduled,
		}
		if session.InstructorID == "" {
			session.InstructorID = actor.UserID
		}
		if err := s.repo.Course().CreateSession(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (s *courseService) AddPrerequisite(ctx context.Context, courseID uuid.UUID, req *PrerequisiteRequest, actor models.Actor) (*DispatchResult, error) {
	s.logger.Info("Adding course prerequisite", "course_id", courseID, "prerequisite_id", req.PrerequisiteID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.getManagedCourse(ctx, s.db, courseID, actor); err != nil {
		return nil, err
	}

	return s.dispatcher.OnCoursePrerequisiteRequested(ctx, nil, courseID, req.PrerequisiteID, actor.UserID)
}

// getManagedCourse loads the course and checks the actor may edit it
func (s *courseService) getManagedCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, actor models.Actor) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, tx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if actor.IsAdmin() || (actor.Role == models.RoleTrainer && course.CreatedBy == actor.UserID) {
		return course, nil
	}
	return nil, NewPermissionError(actor.UserID, "course", "update", "not the course owner")
}

func (s *courseService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
