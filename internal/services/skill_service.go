package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

var verifierLevels = []models.ProficiencyLevel{models.ProficiencyAdvanced, models.ProficiencyExpert}

type skillService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	dispatcher *EventDispatcher
}

func NewSkillService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, dispatcher *EventDispatcher) SkillService {
	return &skillService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		dispatcher: dispatcher,
	}
}

func (s *skillService) Create(ctx context.Context, req *CreateSkillRequest, actor models.Actor) (*models.Skill, error) {
	s.logger.Info("Creating skill", "name", req.Name, "category", req.Category)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "skill", "create", "only trainers and admins can create skills")
	}

	skill := &models.Skill{Name: req.Name, Category: req.Category, Description: req.Description}
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.Skill().ExistsByName(ctx, tx, req.Name)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateName
		}
		if err := s.repo.Skill().Create(ctx, tx, skill); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("failed to create skill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return skill, nil
}

func (s *skillService) AddPrerequisite(ctx context.Context, skillID uuid.UUID, req *PrerequisiteRequest, actor models.Actor) (*DispatchResult, error) {
	s.logger.Info("Adding skill prerequisite", "skill_id", skillID, "prerequisite_id", req.PrerequisiteID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.UserID, "skill", "update", "only trainers and admins can change prerequisites")
	}

	return s.dispatcher.OnPrerequisiteEdgeRequested(ctx, nil, skillID, req.PrerequisiteID, actor.UserID)
}

// CheckGraph sweeps the persisted skill graph for nodes that cannot be ordered
func (s *skillService) CheckGraph(ctx context.Context) (*GraphCheckResponse, error) {
	edges, err := s.repo.Skill().ListPrerequisiteEdges(ctx, s.db)
	if err != nil {
		return nil, err
	}

	graph := make(PrerequisiteGraph, len(edges))
	for _, edge := range edges {
		graph.AddEdge(edge.SkillID, edge.PrerequisiteID)
	}

	cycle := FindCycle(graph)
	if len(cycle) > 0 {
		s.logger.Warn("Skill prerequisite graph contains a cycle", "nodes", cycle)
	}

	return &GraphCheckResponse{
		Nodes:      graph.nodeCount(),
		Edges:      len(edges),
		Healthy:    len(cycle) == 0,
		CycleNodes: cycle,
	}, nil
}

// Declare records the caller's own proficiency. Changing the level drops an existing verification.
func (s *skillService) Declare(ctx context.Context, skillID uuid.UUID, req *DeclareSkillRequest, actor models.Actor) (*models.UserSkill, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var userSkill *models.UserSkill
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.Skill().GetByID(ctx, tx, skillID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSkillNotFound
			}
			return fmt.Errorf("failed to get skill: %w", err)
		}

		var err error
		userSkill, err = s.repo.Skill().GetUserSkillByUserAndSkill(ctx, tx, actor.UserID, skillID)
		switch {
		case repositories.IsNotFoundError(err):
			userSkill = &models.UserSkill{UserID: actor.UserID, SkillID: skillID, Proficiency: req.Proficiency}
			return s.repo.Skill().CreateUserSkill(ctx, tx, userSkill)
		case err != nil:
			return fmt.Errorf("failed to get user skill: %w", err)
		}

		if userSkill.Proficiency == req.Proficiency {
			return nil
		}
		userSkill.Proficiency = req.Proficiency
		userSkill.IsVerified = false
		userSkill.VerifiedBy = nil
		userSkill.VerifiedAt = nil
		return s.repo.Skill().UpdateUserSkill(ctx, tx, userSkill)
	})
	if err != nil {
		return nil, err
	}

	return userSkill, nil
}

// Verify marks another user's skill verified. Admins may verify anything; others need a
// verified ADVANCED or EXPERT skill in the same category.
func (s *skillService) Verify(ctx context.Context, userSkillID uuid.UUID, actor models.Actor) (*VerificationResponse, error) {
	s.logger.Info("Verifying user skill", "user_skill_id", userSkillID, "verifier_id", actor.UserID)

	var userSkill *models.UserSkill
	var dispatch *DispatchResult
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		var err error
		userSkill, err = s.repo.Skill().GetUserSkill(ctx, tx, userSkillID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrUserSkillNotFound
			}
			return fmt.Errorf("failed to get user skill: %w", err)
		}

		if userSkill.IsVerified {
			return ErrAlreadyVerified
		}
		if userSkill.UserID == actor.UserID {
			return ErrSelfVerification
		}
		if err := s.checkVerifier(ctx, tx, userSkill, actor); err != nil {
			return err
		}

		now := time.Now().UTC()
		verifier := actor.UserID
		userSkill.IsVerified = true
		userSkill.VerifiedBy = &verifier
		userSkill.VerifiedAt = &now
		if err := s.repo.Skill().UpdateUserSkill(ctx, tx, userSkill); err != nil {
			return fmt.Errorf("failed to verify user skill: %w", err)
		}

		detail := map[string]interface{}{
			"user_skill_id": userSkill.ID,
			"skill_id":      userSkill.SkillID,
			"proficiency":   userSkill.Proficiency,
			"verified_by":   verifier,
		}
		if err := recordActivity(ctx, tx, s.repo, userSkill.UserID, models.ActivitySkillVerification, detail); err != nil {
			return err
		}

		dispatch, err = s.dispatcher.OnSkillVerified(ctx, tx, userSkill.ID)
		if err != nil {
			return err
		}
		dispatch.addEvents(events.NewEvent(events.SkillVerified, userSkill.UserID, detail))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Flush(ctx, dispatch)
	return &VerificationResponse{UserSkill: userSkill, Dispatch: dispatch}, nil
}

func (s *skillService) checkVerifier(ctx context.Context, tx *gorm.DB, userSkill *models.UserSkill, actor models.Actor) error {
	if actor.IsAdmin() {
		return nil
	}

	category := ""
	if userSkill.Skill != nil {
		category = userSkill.Skill.Category
	} else {
		skill, err := s.repo.Skill().GetByID(ctx, tx, userSkill.SkillID)
		if err != nil {
			return fmt.Errorf("failed to get skill: %w", err)
		}
		category = skill.Category
	}

	qualified, err := s.repo.Skill().HasVerifiedSkillInCategory(ctx, tx, actor.UserID, category, verifierLevels)
	if err != nil {
		return err
	}
	if !qualified {
		return NewPermissionError(actor.UserID, "user_skill", "verify",
			fmt.Sprintf("requires a verified ADVANCED or EXPERT skill in %s", category))
	}
	return nil
}

func (s *skillService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
