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

type progressService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	dispatcher *EventDispatcher
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, dispatcher *EventDispatcher) ProgressService {
	return &progressService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		dispatcher: dispatcher,
	}
}

// Record upserts the progress row for one target and runs the completion cascade in the same transaction
func (s *progressService) Record(ctx context.Context, enrollmentID uuid.UUID, req *ProgressUpdateRequest, actor models.Actor) (*ProgressResponse, error) {
	s.logger.Info("Recording progress", "enrollment_id", enrollmentID, "status", req.Status)

	if (req.LessonID == nil) == (req.AssignmentID == nil) {
		return nil, newEngineError("progress", "Record", ErrStructuralViolation,
			"exactly one of lesson_id and assignment_id must be set")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var progress *models.Progress
	var dispatch *DispatchResult
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		enrollment, err := s.repo.Enrollment().GetByIDForUpdate(ctx, tx, enrollmentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrEnrollmentNotFound
			}
			return fmt.Errorf("failed to get enrollment: %w", err)
		}
		if enrollment.UserID != actor.UserID && !actor.IsStaff() {
			return NewPermissionError(actor.UserID, "progress", "update", "not the enrollment owner")
		}

		if err := s.checkTarget(ctx, tx, enrollment.CourseID, req); err != nil {
			return err
		}

		progress, err = s.repo.Progress().GetByTarget(ctx, tx, enrollmentID, req.LessonID, req.AssignmentID)
		isNew := false
		switch {
		case repositories.IsNotFoundError(err):
			isNew = true
			progress = &models.Progress{
				EnrollmentID: enrollmentID,
				LessonID:     req.LessonID,
				AssignmentID: req.AssignmentID,
				Status:       models.ProgressNotStarted,
			}
		case err != nil:
			return fmt.Errorf("failed to get progress: %w", err)
		}

		previous := progress.Status
		s.apply(progress, req)

		if isNew {
			err = s.repo.Progress().Create(ctx, tx, progress)
		} else {
			err = s.repo.Progress().Update(ctx, tx, progress)
		}
		if err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}

		detail := map[string]interface{}{
			"enrollment_id": enrollmentID,
			"course_id":     enrollment.CourseID,
			"progress_id":   progress.ID,
			"status":        progress.Status,
		}
		if progress.LessonID != nil {
			detail["lesson_id"] = *progress.LessonID
		} else {
			detail["assignment_id"] = *progress.AssignmentID
		}

		if progress.Status == models.ProgressCompleted && previous != models.ProgressCompleted {
			activityType := models.ActivityLessonCompletion
			if progress.AssignmentID != nil {
				activityType = models.ActivityAssignmentCompletion
			}
			if err := recordActivity(ctx, tx, s.repo, enrollment.UserID, activityType, detail); err != nil {
				return err
			}
		}

		dispatch, err = s.dispatcher.OnProgressSaved(ctx, tx, progress.ID)
		if err != nil {
			return err
		}
		dispatch.addEvents(events.NewEvent(events.ProgressRecorded, enrollment.UserID, detail))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, dispatch)
	s.logger.Info("Progress recorded",
		"progress_id", progress.ID,
		"completion_percentage", dispatch.CompletionPercentage,
		"enrollment_status", dispatch.Status,
		"awarded", len(dispatch.Awarded))

	return &ProgressResponse{Progress: progress, Dispatch: dispatch}, nil
}

func (s *progressService) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID, actor models.Actor) ([]*models.Progress, error) {
	enrollment, err := s.repo.Enrollment().GetByID(ctx, s.db, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment.UserID != actor.UserID && !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "progress", "read", "not the enrollment owner")
	}

	return s.repo.Progress().ListByEnrollment(ctx, s.db, enrollmentID)
}

// apply copies the request onto the row. completed_at is stamped once and never cleared.
func (s *progressService) apply(progress *models.Progress, req *ProgressUpdateRequest) {
	progress.Status = req.Status
	if req.Score != nil {
		progress.Score = req.Score
	}
	if req.TimeSpentSeconds > progress.TimeSpentSeconds {
		progress.TimeSpentSeconds = req.TimeSpentSeconds
	}

	switch req.Status {
	case models.ProgressCompleted, models.ProgressFailed:
		progress.AttemptCount++
	}

	if req.Status == models.ProgressCompleted && progress.CompletedAt == nil {
		now := time.Now().UTC()
		progress.CompletedAt = &now
	}
}

// checkTarget makes sure the lesson or assignment belongs to the enrollment's course
func (s *progressService) checkTarget(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, req *ProgressUpdateRequest) error {
	var (
		belongs bool
		err     error
	)
	if req.LessonID != nil {
		belongs, err = s.repo.Course().LessonBelongsToCourse(ctx, tx, *req.LessonID, courseID)
	} else {
		belongs, err = s.repo.Course().AssignmentBelongsToCourse(ctx, tx, *req.AssignmentID, courseID)
	}
	if err != nil {
		return err
	}
	if !belongs {
		return ErrTargetNotInCourse
	}
	return nil
}

func (s *progressService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
