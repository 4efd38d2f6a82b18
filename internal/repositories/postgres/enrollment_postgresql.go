package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (r *EnrollmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	return r.getDB(tx).WithContext(ctx).Omit("Course").Create(enrollment).Error
}

func (r *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.getDB(tx).WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := forUpdate(r.getDB(tx)).WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateFields writes only the named columns so concurrent writers of other columns are not clobbered
func (r *EnrollmentPostgreSQL) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update enrollment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *EnrollmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, params models.ListEnrollmentsParams) ([]*models.Enrollment, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Enrollment{})

	if params.CourseID != nil {
		query = query.Where("course_id = ?", *params.CourseID)
	}
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	offset, limit := paginate(params.Page, params.Size)
	var enrollments []*models.Enrollment
	if err := query.
		Preload("Course").
		Order("enrolled_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&enrollments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, total, nil
}

func (r *EnrollmentPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	if err := r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list course enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByCourse counts seats in use: withdrawn and failed enrollments free their seat
func (r *EnrollmentPostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND status NOT IN ?", courseID, []models.EnrollmentStatus{models.EnrollmentWithdrawn, models.EnrollmentFailed}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}
