package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type AttendancePostgreSQL struct {
	db *gorm.DB
}

func NewAttendancePostgreSQL(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{db: db}
}

func (r *AttendancePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AttendancePostgreSQL) Create(ctx context.Context, tx *gorm.DB, attendance *models.SessionAttendance) error {
	return r.getDB(tx).WithContext(ctx).Omit("Session").Create(attendance).Error
}

func (r *AttendancePostgreSQL) Update(ctx context.Context, tx *gorm.DB, attendance *models.SessionAttendance) error {
	return r.getDB(tx).WithContext(ctx).Omit("Session").Save(attendance).Error
}

func (r *AttendancePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SessionAttendance, error) {
	var attendance models.SessionAttendance
	if err := r.getDB(tx).WithContext(ctx).First(&attendance, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *AttendancePostgreSQL) GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, userID string) (*models.SessionAttendance, error) {
	var attendance models.SessionAttendance
	if err := r.getDB(tx).WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&attendance).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *AttendancePostgreSQL) CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.SessionAttendance{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return count, nil
}
