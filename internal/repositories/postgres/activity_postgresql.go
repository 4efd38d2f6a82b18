package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type ActivityPostgreSQL struct {
	db *gorm.DB
}

func NewActivityPostgreSQL(db *gorm.DB) repositories.ActivityRepository {
	return &ActivityPostgreSQL{db: db}
}

func (r *ActivityPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ActivityPostgreSQL) Create(ctx context.Context, tx *gorm.DB, activity *models.UserActivity) error {
	return r.getDB(tx).WithContext(ctx).Create(activity).Error
}

func (r *ActivityPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*models.UserActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var activities []*models.UserActivity
	if err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (r *ActivityPostgreSQL) CountByUserAndType(ctx context.Context, tx *gorm.DB, userID string, activityType models.ActivityType) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.UserActivity{}).
		Where("user_id = ? AND activity_type = ?", userID, activityType).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}
