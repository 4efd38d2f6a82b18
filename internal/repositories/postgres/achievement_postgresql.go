package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/training-service/internal/cache"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

const activeCatalogKey = "active"

type AchievementPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAchievementPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AchievementRepository {
	return &AchievementPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *AchievementPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AchievementPostgreSQL) Create(ctx context.Context, tx *gorm.DB, achievement *models.Achievement) error {
	if err := r.getDB(tx).WithContext(ctx).Create(achievement).Error; err != nil {
		return err
	}
	cache.InvalidateCatalog(ctx, r.cacheManager)
	return nil
}

func (r *AchievementPostgreSQL) EnsureCatalog(ctx context.Context, tx *gorm.DB, catalog []*models.Achievement) (int64, error) {
	if len(catalog) == 0 {
		return 0, nil
	}

	result := r.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&catalog)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed achievement catalog: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		cache.InvalidateCatalog(ctx, r.cacheManager)
	}
	return result.RowsAffected, nil
}

func (r *AchievementPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Achievement, error) {
	var achievement models.Achievement
	if err := r.getDB(tx).WithContext(ctx).First(&achievement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &achievement, nil
}

func (r *AchievementPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Achievement, error) {
	var achievement models.Achievement
	if err := r.getDB(tx).WithContext(ctx).Where("code = ?", code).First(&achievement).Error; err != nil {
		return nil, err
	}
	return &achievement, nil
}

// ListActive returns the active catalog. Reads outside a transaction go through the catalog cache.
func (r *AchievementPostgreSQL) ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Achievement, error) {
	fetch := func() (interface{}, error) {
		var achievements []*models.Achievement
		if err := r.getDB(tx).WithContext(ctx).
			Where("is_active = ?", true).
			Order("code ASC").
			Find(&achievements).Error; err != nil {
			return nil, fmt.Errorf("failed to list achievements: %w", err)
		}
		return achievements, nil
	}

	if tx != nil || r.cacheManager == nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.([]*models.Achievement), nil
	}

	var achievements []*models.Achievement
	if err := r.cacheManager.Catalog.CacheOrExecute(ctx, activeCatalogKey, &achievements, cache.CatalogCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return achievements, nil
}

// ===== AWARDS =====

func (r *AchievementPostgreSQL) Award(ctx context.Context, tx *gorm.DB, award *models.UserAchievement) (bool, error) {
	result := r.getDB(tx).WithContext(ctx).
		Omit("Achievement").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(award)
	if result.Error != nil {
		return false, fmt.Errorf("failed to award achievement: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *AchievementPostgreSQL) HeldAchievementIDs(ctx context.Context, tx *gorm.DB, userID string) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load held achievements: %w", err)
	}

	held := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		held[id] = struct{}{}
	}
	return held, nil
}

func (r *AchievementPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserAchievement, error) {
	var awards []*models.UserAchievement
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&awards).Error; err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	return awards, nil
}

func (r *AchievementPostgreSQL) CountByUserAndAchievement(ctx context.Context, tx *gorm.DB, userID string, achievementID uuid.UUID) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count user achievement: %w", err)
	}
	return count, nil
}

func (r *AchievementPostgreSQL) LockUser(ctx context.Context, tx *gorm.DB, userID string) error {
	return acquireUserXactLock(ctx, r.getDB(tx), achievementLockNamespace, userID)
}
