package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/cache"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

type achievementService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	engine     *AchievementEngine
	dispatcher *EventDispatcher
}

func NewAchievementService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, engine *AchievementEngine, dispatcher *EventDispatcher) AchievementService {
	return &achievementService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		engine:     engine,
		dispatcher: dispatcher,
	}
}

func (s *achievementService) ListCatalog(ctx context.Context) ([]*models.Achievement, error) {
	return s.repo.Achievement().ListActive(ctx, nil)
}

// GetUserSummary returns counters and awards, cached until the next award for the user
func (s *achievementService) GetUserSummary(ctx context.Context, userID string, actor models.Actor) (*models.UserAchievementSummary, error) {
	if userID != actor.UserID && !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "achievement", "read", "cannot read other users' achievements")
	}

	var summary models.UserAchievementSummary
	err := s.repo.Cache().Summary.CacheOrExecute(ctx, userID, &summary, cache.SummaryCacheConfig.TTL, func() (interface{}, error) {
		counters, err := s.repo.Stats().GetUserCounters(ctx, s.db, userID)
		if err != nil {
			return nil, err
		}
		awards, err := s.repo.Achievement().ListByUser(ctx, s.db, userID)
		if err != nil {
			return nil, err
		}
		return &models.UserAchievementSummary{UserID: userID, Counters: *counters, Achievements: awards}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement summary: %w", err)
	}

	return &summary, nil
}

// AwardManually grants an achievement on an admin's behalf; the engine then cascades milestones
func (s *achievementService) AwardManually(ctx context.Context, userID string, req *ManualAwardRequest, actor models.Actor) (*DispatchResult, error) {
	s.logger.Info("Manual achievement award", "user_id", userID, "code", req.AchievementCode, "admin_id", actor.UserID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, NewPermissionError(actor.UserID, "achievement", "award", "only admins can award achievements")
	}

	result := &DispatchResult{}
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		achievement, err := s.repo.Achievement().GetByCode(ctx, tx, req.AchievementCode)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAchievementNotFound
			}
			return fmt.Errorf("failed to get achievement: %w", err)
		}

		milestones, err := s.engine.AwardManually(ctx, tx, userID, achievement, actor.UserID, req.Reason)
		if err != nil {
			return err
		}

		result.Awarded = milestones.Awarded
		result.MilestoneIncomplete = milestones.Incomplete
		result.addEvents(milestones.Events...)
		if len(milestones.Awarded) > 0 {
			result.touchUser(userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, result)
	return result, nil
}

func (s *achievementService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
