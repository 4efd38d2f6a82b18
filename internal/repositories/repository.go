package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/cache"
)

// Repository aggregates the per-domain repositories
type Repository interface {
	// Course catalog and prerequisite graph
	Course() CourseRepository

	// Learner records
	Enrollment() EnrollmentRepository
	Progress() ProgressRepository
	Attendance() AttendanceRepository

	// Gamification
	Skill() SkillRepository
	Achievement() AchievementRepository

	// Audit and aggregates
	Activity() ActivityRepository
	Stats() StatsRepository

	// Identity provider (read-only)
	User() UserRepository

	// Read-through caches shared by repositories and services
	Cache() *cache.CacheManager

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err means the row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
