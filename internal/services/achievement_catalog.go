package services

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

type catalogEntry struct {
	Code        string                     `yaml:"code"`
	Name        string                     `yaml:"name"`
	Description string                     `yaml:"description"`
	Category    string                     `yaml:"category"`
	Points      int                        `yaml:"points"`
	Criteria    models.AchievementCriteria `yaml:"criteria"`
	Active      *bool                      `yaml:"active"`
}

type catalogFile struct {
	Achievements []catalogEntry `yaml:"achievements"`
}

var defaultCatalog = []catalogEntry{
	{Code: "FIRST_COURSE_COMPLETION", Name: "First Course Completed", Description: "Completed your first course", Category: "learning", Points: 10,
		Criteria: models.AchievementCriteria{Counter: models.CounterCompletedEnrollments, Threshold: 1}},
	{Code: "INTERMEDIATE_LEARNER", Name: "Intermediate Learner", Description: "Completed 5 courses", Category: "learning", Points: 50,
		Criteria: models.AchievementCriteria{Counter: models.CounterCompletedEnrollments, Threshold: 5}},
	{Code: "ADVANCED_LEARNER", Name: "Advanced Learner", Description: "Completed 10 courses", Category: "learning", Points: 100,
		Criteria: models.AchievementCriteria{Counter: models.CounterCompletedEnrollments, Threshold: 10}},
	{Code: "EXPERT_LEARNER", Name: "Expert Learner", Description: "Completed 25 courses", Category: "learning", Points: 250,
		Criteria: models.AchievementCriteria{Counter: models.CounterCompletedEnrollments, Threshold: 25}},
	{Code: "ATTENDED_5_SESSIONS", Name: "Regular Attendee", Description: "Attended 5 live sessions", Category: "attendance", Points: 20,
		Criteria: models.AchievementCriteria{Counter: models.CounterAttendedSessions, Threshold: 5}},
	{Code: "ATTENDED_10_SESSIONS", Name: "Dedicated Attendee", Description: "Attended 10 live sessions", Category: "attendance", Points: 40,
		Criteria: models.AchievementCriteria{Counter: models.CounterAttendedSessions, Threshold: 10}},
	{Code: "ATTENDED_25_SESSIONS", Name: "Session Veteran", Description: "Attended 25 live sessions", Category: "attendance", Points: 100,
		Criteria: models.AchievementCriteria{Counter: models.CounterAttendedSessions, Threshold: 25}},
	{Code: "ACHIEVEMENT_COLLECTOR_BRONZE", Name: "Collector (Bronze)", Description: "Earned 5 achievements", Category: "collection", Points: 25,
		Criteria: models.AchievementCriteria{Counter: models.CounterHeldAchievements, Threshold: 5}},
	{Code: "ACHIEVEMENT_COLLECTOR_SILVER", Name: "Collector (Silver)", Description: "Earned 10 achievements", Category: "collection", Points: 50,
		Criteria: models.AchievementCriteria{Counter: models.CounterHeldAchievements, Threshold: 10}},
	{Code: "ACHIEVEMENT_COLLECTOR_GOLD", Name: "Collector (Gold)", Description: "Earned 20 achievements", Category: "collection", Points: 100,
		Criteria: models.AchievementCriteria{Counter: models.CounterHeldAchievements, Threshold: 20}},
	{Code: "POINTS_MILESTONE_BRONZE", Name: "100 Points", Description: "Reached 100 achievement points", Category: "points", Points: 0,
		Criteria: models.AchievementCriteria{Counter: models.CounterAchievementPoints, Threshold: 100}},
	{Code: "POINTS_MILESTONE_SILVER", Name: "500 Points", Description: "Reached 500 achievement points", Category: "points", Points: 0,
		Criteria: models.AchievementCriteria{Counter: models.CounterAchievementPoints, Threshold: 500}},
	{Code: "POINTS_MILESTONE_GOLD", Name: "1000 Points", Description: "Reached 1000 achievement points", Category: "points", Points: 0,
		Criteria: models.AchievementCriteria{Counter: models.CounterAchievementPoints, Threshold: 1000}},
}

// DefaultAchievementCatalog returns fresh rows for the built-in milestones
func DefaultAchievementCatalog() []*models.Achievement {
	catalog, _ := buildCatalog(defaultCatalog)
	return catalog
}

// LoadAchievementCatalog reads a YAML catalog; an empty path yields the built-in one
func LoadAchievementCatalog(path string) ([]*models.Achievement, error) {
	if path == "" {
		return DefaultAchievementCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read achievement catalog: %w", err)
	}
	return ParseAchievementCatalog(raw)
}

func ParseAchievementCatalog(raw []byte) ([]*models.Achievement, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse achievement catalog: %w", err)
	}
	if len(file.Achievements) == 0 {
		return nil, fmt.Errorf("achievement catalog is empty")
	}
	return buildCatalog(file.Achievements)
}

func buildCatalog(entries []catalogEntry) ([]*models.Achievement, error) {
	seen := make(map[string]struct{}, len(entries))
	catalog := make([]*models.Achievement, 0, len(entries))

	for i, entry := range entries {
		switch {
		case entry.Code == "":
			return nil, fmt.Errorf("catalog entry %d: code is required", i)
		case !entry.Criteria.Counter.IsValid():
			return nil, fmt.Errorf("catalog entry %s: unknown counter %q", entry.Code, entry.Criteria.Counter)
		case entry.Criteria.Threshold < 1:
			return nil, fmt.Errorf("catalog entry %s: threshold must be positive", entry.Code)
		case entry.Points < 0:
			return nil, fmt.Errorf("catalog entry %s: points must not be negative", entry.Code)
		}
		if _, dup := seen[entry.Code]; dup {
			return nil, fmt.Errorf("catalog entry %s: duplicate code", entry.Code)
		}
		seen[entry.Code] = struct{}{}

		name := entry.Name
		if name == "" {
			name = entry.Code
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}

		catalog = append(catalog, &models.Achievement{
			Code:        entry.Code,
			Name:        name,
			Description: entry.Description,
			Category:    entry.Category,
			Points:      entry.Points,
			Criteria:    datatypes.NewJSONType(entry.Criteria),
			IsActive:    active,
		})
	}

	return catalog, nil
}

// SeedAchievementCatalog inserts catalog rows whose code is not present yet
func SeedAchievementCatalog(ctx context.Context, db *gorm.DB, repo repositories.Repository, catalog []*models.Achievement) (int64, error) {
	var added int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		added, err = repo.Achievement().EnsureCatalog(ctx, tx, catalog)
		return err
	})
	return added, err
}
