package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (r *ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ProgressPostgreSQL) Create(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	return r.getDB(tx).WithContext(ctx).Create(progress).Error
}

func (r *ProgressPostgreSQL) Update(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	return r.getDB(tx).WithContext(ctx).Save(progress).Error
}

func (r *ProgressPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Progress, error) {
	var progress models.Progress
	if err := r.getDB(tx).WithContext(ctx).First(&progress, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressPostgreSQL) GetByTarget(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, lessonID, assignmentID *uuid.UUID) (*models.Progress, error) {
	query := r.getDB(tx).WithContext(ctx).Where("enrollment_id = ?", enrollmentID)
	switch {
	case lessonID != nil:
		query = query.Where("lesson_id = ?", *lessonID)
	case assignmentID != nil:
		query = query.Where("assignment_id = ?", *assignmentID)
	default:
		return nil, fmt.Errorf("progress target is required")
	}

	var progress models.Progress
	if err := query.First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressPostgreSQL) ListByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) ([]*models.Progress, error) {
	var records []*models.Progress
	if err := r.getDB(tx).WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

func (r *ProgressPostgreSQL) CountCompletedRequired(ctx context.Context, tx *gorm.DB, enrollmentID, courseID uuid.UUID) (int64, error) {
	db := r.getDB(tx).WithContext(ctx)

	requiredLessons := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Lesson{}).
		Select("lessons.id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ? AND lessons.is_required = ?", courseID, true)

	courseAssignments := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Assignment{}).
		Select("id").
		Where("course_id = ?", courseID)

	var count int64
	if err := db.
		Model(&models.Progress{}).
		Where("enrollment_id = ? AND status = ?", enrollmentID, models.ProgressCompleted).
		Where(
			db.Session(&gorm.Session{NewDB: true}).
				Where("lesson_id IN (?)", requiredLessons).
				Or("assignment_id IN (?)", courseAssignments),
		).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completed progress: %w", err)
	}
	return count, nil
}
