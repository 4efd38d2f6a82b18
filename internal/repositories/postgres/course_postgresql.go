package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db *gorm.DB
}

func NewCoursePostgreSQL(db *gorm.DB) repositories.CourseRepository {
	return &CoursePostgreSQL{db: db}
}

func (r *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	return r.getDB(tx).WithContext(ctx).Omit("Modules", "Assignments").Create(course).Error
}

func (r *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.getDB(tx).WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CoursePostgreSQL) GetByIDWithContent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CoursePostgreSQL) ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check course code: %w", err)
	}
	return count > 0, nil
}

// ===== MODULES & LESSONS =====

func (r *CoursePostgreSQL) CreateModule(ctx context.Context, tx *gorm.DB, module *models.Module) error {
	return r.getDB(tx).WithContext(ctx).Omit("Lessons").Create(module).Error
}

func (r *CoursePostgreSQL) GetModule(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Module, error) {
	var module models.Module
	if err := r.getDB(tx).WithContext(ctx).First(&module, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *CoursePostgreSQL) ModulePositionTaken(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, position int) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Module{}).
		Where("course_id = ? AND position = ?", courseID, position).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check module order: %w", err)
	}
	return count > 0, nil
}

func (r *CoursePostgreSQL) CreateLesson(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	return r.getDB(tx).WithContext(ctx).Create(lesson).Error
}

func (r *CoursePostgreSQL) GetLesson(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.getDB(tx).WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *CoursePostgreSQL) LessonPositionTaken(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, position int) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Where("module_id = ? AND position = ?", moduleID, position).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check lesson order: %w", err)
	}
	return count > 0, nil
}

func (r *CoursePostgreSQL) LessonBelongsToCourse(ctx context.Context, tx *gorm.DB, lessonID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lessons.id = ? AND modules.course_id = ?", lessonID, courseID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check lesson ownership: %w", err)
	}
	return count > 0, nil
}

// ===== ASSIGNMENTS & SESSIONS =====

func (r *CoursePostgreSQL) CreateAssignment(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	return r.getDB(tx).WithContext(ctx).Create(assignment).Error
}

func (r *CoursePostgreSQL) GetAssignment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.getDB(tx).WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *CoursePostgreSQL) AssignmentBelongsToCourse(ctx context.Context, tx *gorm.DB, assignmentID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND course_id = ?", assignmentID, courseID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check assignment ownership: %w", err)
	}
	return count > 0, nil
}

func (r *CoursePostgreSQL) CreateSession(ctx context.Context, tx *gorm.DB, session *models.LiveSession) error {
	return r.getDB(tx).WithContext(ctx).Create(session).Error
}

func (r *CoursePostgreSQL) GetSession(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := r.getDB(tx).WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ===== AGGREGATOR INPUTS =====

func (r *CoursePostgreSQL) CountRequiredLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ? AND lessons.is_required = ?", courseID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count required lessons: %w", err)
	}
	return count, nil
}

func (r *CoursePostgreSQL) CountAssignments(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Where("course_id = ?", courseID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// ===== PREREQUISITE GRAPH =====

func (r *CoursePostgreSQL) LockPrerequisiteGraph(ctx context.Context, tx *gorm.DB) error {
	return acquireXactLock(ctx, r.getDB(tx), courseGraphLockKey)
}

func (r *CoursePostgreSQL) ListPrerequisiteEdges(ctx context.Context, tx *gorm.DB) ([]models.CoursePrerequisite, error) {
	var edges []models.CoursePrerequisite
	if err := r.getDB(tx).WithContext(ctx).
		Select("course_id", "prerequisite_id").
		Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to list course prerequisites: %w", err)
	}
	return edges, nil
}

func (r *CoursePostgreSQL) AddPrerequisite(ctx context.Context, tx *gorm.DB, edge *models.CoursePrerequisite) (bool, error) {
	inserted, err := insertIgnoringConflict(ctx, r.getDB(tx), edge)
	if err != nil {
		return false, fmt.Errorf("failed to insert course prerequisite: %w", err)
	}
	return inserted, nil
}

func (r *CoursePostgreSQL) ListPrerequisites(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*models.Course, error) {
	var courses []*models.Course
	if err := r.getDB(tx).WithContext(ctx).
		Joins("JOIN course_prerequisites cp ON cp.prerequisite_id = courses.id").
		Where("cp.course_id = ?", courseID).
		Order("courses.code ASC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list prerequisites: %w", err)
	}
	return courses, nil
}
