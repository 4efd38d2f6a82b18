package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

const (
	achievementComponent      = "achievement"
	DefaultMaxMilestonePasses = 3
)

type MilestoneResult struct {
	Awarded    []*models.UserAchievement
	Passes     int
	Incomplete bool
	Events     []*events.Event
}

func (r *MilestoneResult) merge(other *MilestoneResult) {
	if other == nil {
		return
	}
	r.Awarded = append(r.Awarded, other.Awarded...)
	r.Events = append(r.Events, other.Events...)
	r.Passes += other.Passes
	r.Incomplete = r.Incomplete || other.Incomplete
}

// AchievementEngine evaluates milestone rules against fresh counters and awards at most once per user
type AchievementEngine struct {
	repo      repositories.Repository
	logger    *slog.Logger
	maxPasses int
	now       func() time.Time
}

func NewAchievementEngine(repo repositories.Repository, logger *slog.Logger, maxPasses int) *AchievementEngine {
	if maxPasses < 1 {
		maxPasses = DefaultMaxMilestonePasses
	}
	return &AchievementEngine{
		repo:      repo,
		logger:    logger,
		maxPasses: maxPasses,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateMilestones awards every satisfied, unheld rule. Count rules run before point
// rules in each pass; passes repeat until one awards nothing or the cap is reached.
// Evaluations for the same user are serialized for the rest of tx.
func (e *AchievementEngine) EvaluateMilestones(ctx context.Context, tx *gorm.DB, userID, trigger string) (*MilestoneResult, error) {
	if err := e.repo.Achievement().LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	catalog, err := e.repo.Achievement().ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	countRules, pointRules := splitRules(catalog)

	result := &MilestoneResult{}
	for pass := 1; pass <= e.maxPasses; pass++ {
		result.Passes = pass

		awardedCount, err := e.runPhase(ctx, tx, userID, trigger, countRules, result)
		if err != nil {
			return nil, err
		}
		awardedPoints, err := e.runPhase(ctx, tx, userID, trigger, pointRules, result)
		if err != nil {
			return nil, err
		}

		if awardedCount+awardedPoints == 0 {
			return result, nil
		}
	}

	pending, err := e.pendingRules(ctx, tx, userID, catalog)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		result.Incomplete = true
		e.logger.Warn("Milestone evaluation stopped at pass limit",
			"error", ErrMilestoneEvaluationIncomplete,
			"user_id", userID,
			"passes", e.maxPasses,
			"pending", pending)
	}

	return result, nil
}

// runPhase reads counters once and awards every satisfied rule of the phase
func (e *AchievementEngine) runPhase(ctx context.Context, tx *gorm.DB, userID, trigger string, rules []*models.Achievement, result *MilestoneResult) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	held, err := e.repo.Achievement().HeldAchievementIDs(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	counters, err := e.repo.Stats().GetUserCounters(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, rule := range rules {
		if _, ok := held[rule.ID]; ok {
			continue
		}
		criteria := rule.Criteria.Data()
		observed := counters.Value(criteria.Counter)
		if observed < criteria.Threshold {
			continue
		}

		evidence := map[string]interface{}{
			"counter":   criteria.Counter,
			"observed":  observed,
			"threshold": criteria.Threshold,
			"trigger":   trigger,
		}
		award, err := e.award(ctx, tx, userID, rule, nil, evidence)
		if err != nil {
			if errors.Is(err, ErrConcurrentAwardConflict) {
				held[rule.ID] = struct{}{}
				continue
			}
			return awarded, err
		}

		held[rule.ID] = struct{}{}
		result.Awarded = append(result.Awarded, award)
		result.Events = append(result.Events, awardedEvent(userID, rule, award))
		awarded++
	}

	return awarded, nil
}

// award inserts the row and its audit record. ErrConcurrentAwardConflict means another
// transaction already holds the award.
func (e *AchievementEngine) award(ctx context.Context, tx *gorm.DB, userID string, achievement *models.Achievement, awardedBy *string, evidence map[string]interface{}) (*models.UserAchievement, error) {
	raw, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}

	award := &models.UserAchievement{
		UserID:        userID,
		AchievementID: achievement.ID,
		AwardedAt:     e.now(),
		AwardedBy:     awardedBy,
		Evidence:      datatypes.JSON(raw),
	}

	inserted, err := e.repo.Achievement().Award(ctx, tx, award)
	if err != nil {
		return nil, err
	}
	if !inserted {
		e.logger.Debug("Achievement already awarded", "user_id", userID, "code", achievement.Code)
		return nil, ErrConcurrentAwardConflict
	}

	detail := map[string]interface{}{
		"achievement_id": achievement.ID,
		"code":           achievement.Code,
		"points":         achievement.Points,
		"evidence":       evidence,
	}
	if awardedBy != nil {
		detail["awarded_by"] = *awardedBy
	}
	if err := recordActivity(ctx, tx, e.repo, userID, models.ActivityAchievementEarned, detail); err != nil {
		return nil, err
	}

	award.Achievement = achievement
	e.logger.Info("Achievement awarded", "user_id", userID, "code", achievement.Code, "manual", awardedBy != nil)
	return award, nil
}

// AwardManually grants an achievement on behalf of an admin and then re-evaluates milestones.
// Awarding something the user already holds is a no-op.
func (e *AchievementEngine) AwardManually(ctx context.Context, tx *gorm.DB, userID string, achievement *models.Achievement, awardedBy, reason string) (*MilestoneResult, error) {
	if err := e.repo.Achievement().LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	result := &MilestoneResult{}

	evidence := map[string]interface{}{"manual": true, "reason": reason}
	award, err := e.award(ctx, tx, userID, achievement, &awardedBy, evidence)
	switch {
	case errors.Is(err, ErrConcurrentAwardConflict):
		return result, nil
	case err != nil:
		return nil, err
	}
	result.Awarded = append(result.Awarded, award)
	result.Events = append(result.Events, awardedEvent(userID, achievement, award))

	cascade, err := e.EvaluateMilestones(ctx, tx, userID, "manual_award:"+achievement.Code)
	if err != nil {
		return nil, err
	}
	result.merge(cascade)
	return result, nil
}

// pendingRules lists codes that are satisfied but not held
func (e *AchievementEngine) pendingRules(ctx context.Context, tx *gorm.DB, userID string, catalog []*models.Achievement) ([]string, error) {
	held, err := e.repo.Achievement().HeldAchievementIDs(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	counters, err := e.repo.Stats().GetUserCounters(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, rule := range catalog {
		if _, ok := held[rule.ID]; ok {
			continue
		}
		criteria := rule.Criteria.Data()
		if counters.Value(criteria.Counter) >= criteria.Threshold {
			pending = append(pending, rule.Code)
		}
	}
	return pending, nil
}

func splitRules(catalog []*models.Achievement) (countRules, pointRules []*models.Achievement) {
	for _, rule := range catalog {
		criteria := rule.Criteria.Data()
		if !criteria.Counter.IsValid() {
			continue
		}
		if criteria.Counter.IsPointBased() {
			pointRules = append(pointRules, rule)
		} else {
			countRules = append(countRules, rule)
		}
	}

	byThreshold := func(rules []*models.Achievement) {
		sort.SliceStable(rules, func(i, j int) bool {
			ci, cj := rules[i].Criteria.Data(), rules[j].Criteria.Data()
			if ci.Threshold != cj.Threshold {
				return ci.Threshold < cj.Threshold
			}
			return rules[i].Code < rules[j].Code
		})
	}
	byThreshold(countRules)
	byThreshold(pointRules)
	return countRules, pointRules
}

func awardedEvent(userID string, achievement *models.Achievement, award *models.UserAchievement) *events.Event {
	return events.NewEvent(events.AchievementAwarded, userID, map[string]interface{}{
		"user_achievement_id": award.ID,
		"achievement_id":      achievement.ID,
		"code":                achievement.Code,
		"points":              achievement.Points,
		"awarded_at":          award.AwardedAt,
		"manual":              award.AwardedBy != nil,
	})
}
