package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
)

// CourseRepository covers the catalog: courses, modules, lessons, assignments, sessions
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error)
	GetByIDWithContent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error)
	ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error)

	CreateModule(ctx context.Context, tx *gorm.DB, module *models.Module) error
	GetModule(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Module, error)
	ModulePositionTaken(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, position int) (bool, error)

	CreateLesson(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	GetLesson(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Lesson, error)
	LessonPositionTaken(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, position int) (bool, error)
	LessonBelongsToCourse(ctx context.Context, tx *gorm.DB, lessonID, courseID uuid.UUID) (bool, error)

	CreateAssignment(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetAssignment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Assignment, error)
	AssignmentBelongsToCourse(ctx context.Context, tx *gorm.DB, assignmentID, courseID uuid.UUID) (bool, error)

	CreateSession(ctx context.Context, tx *gorm.DB, session *models.LiveSession) error
	GetSession(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LiveSession, error)

	// Aggregator inputs
	CountRequiredLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)
	CountAssignments(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)

	// Prerequisite graph
	LockPrerequisiteGraph(ctx context.Context, tx *gorm.DB) error
	ListPrerequisiteEdges(ctx context.Context, tx *gorm.DB) ([]models.CoursePrerequisite, error)
	AddPrerequisite(ctx context.Context, tx *gorm.DB, edge *models.CoursePrerequisite) (bool, error)
	ListPrerequisites(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*models.Course, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error)
	// GetByIDForUpdate reads the row under a write lock where the dialect supports it
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error)
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uuid.UUID) (*models.Enrollment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	List(ctx context.Context, tx *gorm.DB, params models.ListEnrollmentsParams) ([]*models.Enrollment, int64, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*models.Enrollment, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)
}

type ProgressRepository interface {
	Create(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
	Update(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Progress, error)
	GetByTarget(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, lessonID, assignmentID *uuid.UUID) (*models.Progress, error)
	ListByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) ([]*models.Progress, error)
	// CountCompletedRequired counts COMPLETED rows on required lessons and on assignments of the course
	CountCompletedRequired(ctx context.Context, tx *gorm.DB, enrollmentID, courseID uuid.UUID) (int64, error)
}

type AttendanceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attendance *models.SessionAttendance) error
	Update(ctx context.Context, tx *gorm.DB, attendance *models.SessionAttendance) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SessionAttendance, error)
	GetBySessionAndUser(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, userID string) (*models.SessionAttendance, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
}

type SkillRepository interface {
	Create(ctx context.Context, tx *gorm.DB, skill *models.Skill) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Skill, error)
	ExistsByName(ctx context.Context, tx *gorm.DB, name string) (bool, error)

	// LockPrerequisiteGraph serializes edge insertions until tx ends
	LockPrerequisiteGraph(ctx context.Context, tx *gorm.DB) error
	ListPrerequisiteEdges(ctx context.Context, tx *gorm.DB) ([]models.SkillPrerequisite, error)
	AddPrerequisite(ctx context.Context, tx *gorm.DB, edge *models.SkillPrerequisite) (bool, error)

	CreateUserSkill(ctx context.Context, tx *gorm.DB, userSkill *models.UserSkill) error
	UpdateUserSkill(ctx context.Context, tx *gorm.DB, userSkill *models.UserSkill) error
	GetUserSkill(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.UserSkill, error)
	GetUserSkillByUserAndSkill(ctx context.Context, tx *gorm.DB, userID string, skillID uuid.UUID) (*models.UserSkill, error)
	HasVerifiedSkillInCategory(ctx context.Context, tx *gorm.DB, userID, category string, levels []models.ProficiencyLevel) (bool, error)
}

type AchievementRepository interface {
	Create(ctx context.Context, tx *gorm.DB, achievement *models.Achievement) error
	// EnsureCatalog inserts entries whose code does not exist yet and returns how many were added
	EnsureCatalog(ctx context.Context, tx *gorm.DB, catalog []*models.Achievement) (int64, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Achievement, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Achievement, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Achievement, error)

	// Award inserts the (user, achievement) row; false means it already existed
	Award(ctx context.Context, tx *gorm.DB, award *models.UserAchievement) (bool, error)
	HeldAchievementIDs(ctx context.Context, tx *gorm.DB, userID string) (map[uuid.UUID]struct{}, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserAchievement, error)
	CountByUserAndAchievement(ctx context.Context, tx *gorm.DB, userID string, achievementID uuid.UUID) (int64, error)

	// LockUser serializes milestone evaluation for one user until tx ends
	LockUser(ctx context.Context, tx *gorm.DB, userID string) error
}

type ActivityRepository interface {
	Create(ctx context.Context, tx *gorm.DB, activity *models.UserActivity) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*models.UserActivity, error)
	CountByUserAndType(ctx context.Context, tx *gorm.DB, userID string, activityType models.ActivityType) (int64, error)
}

// StatsRepository serves aggregate reads: engine counters and course rollups
type StatsRepository interface {
	GetUserCounters(ctx context.Context, tx *gorm.DB, userID string) (*models.UserCounters, error)
	GetCourseOverview(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*models.CourseProgressOverview, error)
}
