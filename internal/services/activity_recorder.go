package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

// recordActivity appends to the audit trail inside tx. A failure here fails the whole operation.
func recordActivity(ctx context.Context, tx *gorm.DB, repo repositories.Repository, userID string, activityType models.ActivityType, detail map[string]interface{}) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode %s activity: %w", activityType, err)
	}

	activity := &models.UserActivity{
		UserID:       userID,
		ActivityType: activityType,
		Detail:       datatypes.JSON(raw),
	}
	if err := repo.Activity().Create(ctx, tx, activity); err != nil {
		return fmt.Errorf("failed to record %s activity: %w", activityType, err)
	}
	return nil
}
