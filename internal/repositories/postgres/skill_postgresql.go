package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type SkillPostgreSQL struct {
	db *gorm.DB
}

func NewSkillPostgreSQL(db *gorm.DB) repositories.SkillRepository {
	return &SkillPostgreSQL{db: db}
}

func (r *SkillPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *SkillPostgreSQL) Create(ctx context.Context, tx *gorm.DB, skill *models.Skill) error {
	return r.getDB(tx).WithContext(ctx).Create(skill).Error
}

func (r *SkillPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Skill, error) {
	var skill models.Skill
	if err := r.getDB(tx).WithContext(ctx).First(&skill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &skill, nil
}

func (r *SkillPostgreSQL) ExistsByName(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Skill{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check skill name: %w", err)
	}
	return count > 0, nil
}

// ===== PREREQUISITE GRAPH =====

func (r *SkillPostgreSQL) LockPrerequisiteGraph(ctx context.Context, tx *gorm.DB) error {
	return acquireXactLock(ctx, r.getDB(tx), skillGraphLockKey)
}

func (r *SkillPostgreSQL) ListPrerequisiteEdges(ctx context.Context, tx *gorm.DB) ([]models.SkillPrerequisite, error) {
	var edges []models.SkillPrerequisite
	if err := r.getDB(tx).WithContext(ctx).
		Select("skill_id", "prerequisite_id").
		Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to list skill prerequisites: %w", err)
	}
	return edges, nil
}

func (r *SkillPostgreSQL) AddPrerequisite(ctx context.Context, tx *gorm.DB, edge *models.SkillPrerequisite) (bool, error) {
	inserted, err := insertIgnoringConflict(ctx, r.getDB(tx), edge)
	if err != nil {
		return false, fmt.Errorf("failed to insert skill prerequisite: %w", err)
	}
	return inserted, nil
}

// ===== USER SKILLS =====

func (r *SkillPostgreSQL) CreateUserSkill(ctx context.Context, tx *gorm.DB, userSkill *models.UserSkill) error {
	return r.getDB(tx).WithContext(ctx).Omit("Skill").Create(userSkill).Error
}

func (r *SkillPostgreSQL) UpdateUserSkill(ctx context.Context, tx *gorm.DB, userSkill *models.UserSkill) error {
	return r.getDB(tx).WithContext(ctx).Omit("Skill").Save(userSkill).Error
}

func (r *SkillPostgreSQL) GetUserSkill(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.UserSkill, error) {
	var userSkill models.UserSkill
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Skill").
		First(&userSkill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &userSkill, nil
}

func (r *SkillPostgreSQL) GetUserSkillByUserAndSkill(ctx context.Context, tx *gorm.DB, userID string, skillID uuid.UUID) (*models.UserSkill, error) {
	var userSkill models.UserSkill
	if err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND skill_id = ?", userID, skillID).
		First(&userSkill).Error; err != nil {
		return nil, err
	}
	return &userSkill, nil
}

func (r *SkillPostgreSQL) HasVerifiedSkillInCategory(ctx context.Context, tx *gorm.DB, userID, category string, levels []models.ProficiencyLevel) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.UserSkill{}).
		Joins("JOIN skills ON skills.id = user_skills.skill_id").
		Where("user_skills.user_id = ? AND user_skills.is_verified = ?", userID, true).
		Where("skills.category = ? AND user_skills.proficiency IN ?", category, levels).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check verifier skills: %w", err)
	}
	return count > 0, nil
}
