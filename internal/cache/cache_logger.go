package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateUserAchievements drops the cached summary of each user after awards commit
func InvalidateUserAchievements(ctx context.Context, cm *CacheManager, userIDs ...string) {
	if cm == nil {
		return
	}
	for _, userID := range userIDs {
		SafeDelete(ctx, cm.Summary, userID)
	}
}

// InvalidateCatalog drops the cached active achievement catalog
func InvalidateCatalog(ctx context.Context, cm *CacheManager) {
	if cm == nil {
		return
	}
	SafeInvalidatePattern(ctx, cm.Catalog, "*")
}

// InvalidateCourseStats drops the cached overview of a course
func InvalidateCourseStats(ctx context.Context, cm *CacheManager, courseID string) {
	if cm == nil {
		return
	}
	SafeDelete(ctx, cm.Stats, "course:"+courseID)
}
