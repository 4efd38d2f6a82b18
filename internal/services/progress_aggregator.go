package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

// CompletionResult is the aggregator's verdict for one enrollment
type CompletionResult struct {
	EnrollmentID      uuid.UUID `json:"enrollment_id"`
	Percentage        int       `json:"completion_percentage"`
	CompletedRequired int64     `json:"completed_required"`
	TotalRequired     int64     `json:"total_required"`
	ShouldComplete    bool      `json:"should_complete"`
}

// ComputeCompletion returns floor(min(100, 100*completed/total)), or 0 for an empty course
func ComputeCompletion(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(completed * 100 / total)
}

// ProgressAggregator rolls progress rows up into an enrollment percentage. It never writes.
type ProgressAggregator struct {
	repo repositories.Repository
}

func NewProgressAggregator(repo repositories.Repository) *ProgressAggregator {
	return &ProgressAggregator{repo: repo}
}

func (a *ProgressAggregator) Recompute(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) (*CompletionResult, error) {
	total, err := a.totalRequired(ctx, tx, enrollment.CourseID)
	if err != nil {
		return nil, err
	}

	completed, err := a.repo.Progress().CountCompletedRequired(ctx, tx, enrollment.ID, enrollment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed items: %w", err)
	}

	percentage := ComputeCompletion(completed, total)
	return &CompletionResult{
		EnrollmentID:      enrollment.ID,
		Percentage:        percentage,
		CompletedRequired: completed,
		TotalRequired:     total,
		ShouldComplete:    percentage == 100 && enrollment.Status != models.EnrollmentCompleted,
	}, nil
}

// RecomputeByID loads the enrollment first
func (a *ProgressAggregator) RecomputeByID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (*CompletionResult, error) {
	enrollment, err := a.repo.Enrollment().GetByID(ctx, tx, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return a.Recompute(ctx, tx, enrollment)
}

func (a *ProgressAggregator) totalRequired(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	lessons, err := a.repo.Course().CountRequiredLessons(ctx, tx, courseID)
	if err != nil {
		return 0, err
	}
	assignments, err := a.repo.Course().CountAssignments(ctx, tx, courseID)
	if err != nil {
		return 0, err
	}
	return lessons + assignments, nil
}
