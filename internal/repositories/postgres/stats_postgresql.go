package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) repositories.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== USER COUNTERS =====

// GetUserCounters reads every aggregate milestone rules are evaluated against.
// Called inside the dispatch transaction so awards made earlier in the same pass are visible.
func (r *statsRepository) GetUserCounters(ctx context.Context, tx *gorm.DB, userID string) (*models.UserCounters, error) {
	db := r.getDB(tx)
	counters := &models.UserCounters{}

	if err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentCompleted).
		Count(&counters.CompletedEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed enrollments: %w", err)
	}

	if err := db.WithContext(ctx).
		Model(&models.SessionAttendance{}).
		Where("user_id = ? AND status = ?", userID, models.AttendanceAttended).
		Count(&counters.AttendedSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count attended sessions: %w", err)
	}

	var held struct {
		Total  int64
		Points int64
	}
	if err := db.WithContext(ctx).
		Model(&models.UserAchievement{}).
		Select("COUNT(*) AS total, COALESCE(SUM(achievements.points), 0) AS points").
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Scan(&held).Error; err != nil {
		return nil, fmt.Errorf("failed to sum achievement points: %w", err)
	}
	counters.HeldAchievements = held.Total
	counters.AchievementPoints = held.Points

	return counters, nil
}

// ===== COURSE OVERVIEW =====

func (r *statsRepository) GetCourseOverview(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*models.CourseProgressOverview, error) {
	db := r.getDB(tx)

	var course models.Course
	if err := db.WithContext(ctx).Select("id", "code").First(&course, "id = ?", courseID).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status models.EnrollmentStatus
		Total  int64
		AvgPct float64
	}
	if err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("status, COUNT(*) AS total, COALESCE(AVG(completion_percentage), 0) AS avg_pct").
		Where("course_id = ?", courseID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate enrollments: %w", err)
	}

	overview := &models.CourseProgressOverview{
		CourseID:   course.ID,
		CourseCode: course.Code,
	}

	var weighted float64
	for _, row := range rows {
		overview.TotalEnrolled += row.Total
		weighted += row.AvgPct * float64(row.Total)

		switch row.Status {
		case models.EnrollmentCompleted:
			overview.Completed = row.Total
		case models.EnrollmentInProgress:
			overview.InProgress = row.Total
		case models.EnrollmentWithdrawn:
			overview.Withdrawn = row.Total
		case models.EnrollmentFailed:
			overview.Failed = row.Total
		}
	}

	if overview.TotalEnrolled > 0 {
		overview.CompletionRate = float64(overview.Completed) / float64(overview.TotalEnrolled) * 100
		overview.AveragePercentage = weighted / float64(overview.TotalEnrolled)
	}

	return overview, nil
}
