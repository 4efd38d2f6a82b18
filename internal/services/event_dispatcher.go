package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/cache"
	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

const tracerName = "github.com/SAP-F-2025/training-service/internal/services"

// DispatchResult summarizes one cascade. Events and cache keys are released by Flush after commit.
type DispatchResult struct {
	EnrollmentID         *uuid.UUID                `json:"enrollment_id,omitempty"`
	CompletionPercentage int                       `json:"completion_percentage"`
	Status               models.EnrollmentStatus   `json:"status,omitempty"`
	CertificateIssued    bool                      `json:"certificate_issued"`
	Awarded              []*models.UserAchievement `json:"awarded"`
	MilestoneIncomplete  bool                      `json:"milestone_incomplete"`
	EdgeAdded            bool                      `json:"edge_added,omitempty"`

	Events []*events.Event `json:"-"`

	users   []string
	courses []uuid.UUID
}

func (r *DispatchResult) touchUser(userID string) {
	for _, u := range r.users {
		if u == userID {
			return
		}
	}
	r.users = append(r.users, userID)
}

func (r *DispatchResult) touchCourse(courseID uuid.UUID) {
	for _, c := range r.courses {
		if c == courseID {
			return
		}
	}
	r.courses = append(r.courses, courseID)
}

// addEvents attaches events raised by the caller so they flush with the cascade
func (r *DispatchResult) addEvents(evts ...*events.Event) {
	r.Events = append(r.Events, evts...)
}

// EventDispatcher runs the engine cascade for each persistence event in a single transaction
type EventDispatcher struct {
	db           *gorm.DB
	repo         repositories.Repository
	aggregator   *ProgressAggregator
	stateMachine *EnrollmentStateMachine
	achievements *AchievementEngine
	publisher    events.EventPublisher
	logger       *slog.Logger
	tracer       trace.Tracer
}

func NewEventDispatcher(
	db *gorm.DB,
	repo repositories.Repository,
	aggregator *ProgressAggregator,
	stateMachine *EnrollmentStateMachine,
	achievements *AchievementEngine,
	publisher events.EventPublisher,
	logger *slog.Logger,
) *EventDispatcher {
	return &EventDispatcher{
		db:           db,
		repo:         repo,
		aggregator:   aggregator,
		stateMachine: stateMachine,
		achievements: achievements,
		publisher:    publisher,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
	}
}

// run executes fn in tx, or in a new transaction when tx is nil. Only in the latter case
// is the result flushed here; callers passing their own tx call Flush after their commit.
func (d *EventDispatcher) run(ctx context.Context, tx *gorm.DB, op string, fn func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error) (*DispatchResult, error) {
	ctx, span := d.tracer.Start(ctx, "dispatcher."+op)
	defer span.End()

	result := &DispatchResult{}
	var err error
	if tx != nil {
		err = fn(ctx, tx, result)
	} else {
		err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, tx, result)
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("dispatch.awarded", len(result.Awarded)),
		attribute.Int("dispatch.events", len(result.Events)),
		attribute.Bool("dispatch.certificate_issued", result.CertificateIssued),
	)

	if tx == nil {
		d.Flush(ctx, result)
	}
	return result, nil
}

// Flush invalidates caches and publishes collected events. Call only after commit.
func (d *EventDispatcher) Flush(ctx context.Context, result *DispatchResult) {
	if result == nil {
		return
	}

	cm := d.repo.Cache()
	cache.InvalidateUserAchievements(ctx, cm, result.users...)
	for _, courseID := range result.courses {
		cache.InvalidateCourseStats(ctx, cm, courseID.String())
	}

	if d.publisher == nil || len(result.Events) == 0 {
		return
	}
	if err := d.publisher.Publish(ctx, result.Events...); err != nil {
		d.logger.Warn("Failed to publish domain events",
			"error", err,
			"count", len(result.Events))
	}
}

// OnProgressSaved recomputes the enrollment, applies derived completion and evaluates milestones
func (d *EventDispatcher) OnProgressSaved(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) (*DispatchResult, error) {
	return d.run(ctx, tx, "OnProgressSaved", func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error {
		progress, err := d.repo.Progress().GetByID(ctx, tx, progressID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrProgressNotFound
			}
			return fmt.Errorf("failed to get progress: %w", err)
		}
		if !progress.HasSingleTarget() {
			return newEngineError("dispatcher", "OnProgressSaved", ErrStructuralViolation,
				"progress %s must reference exactly one lesson or assignment", progress.ID)
		}

		enrollment, err := d.lockEnrollment(ctx, tx, progress.EnrollmentID)
		if err != nil {
			return err
		}

		if err := d.aggregate(ctx, tx, enrollment, "progress:"+progress.ID.String(), result); err != nil {
			return err
		}
		return d.evaluate(ctx, tx, enrollment.UserID, "progress:"+progress.ID.String(), result)
	})
}

// OnAttendanceSaved evaluates milestones for the attendee
func (d *EventDispatcher) OnAttendanceSaved(ctx context.Context, tx *gorm.DB, attendanceID uuid.UUID) (*DispatchResult, error) {
	return d.run(ctx, tx, "OnAttendanceSaved", func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error {
		attendance, err := d.repo.Attendance().GetByID(ctx, tx, attendanceID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttendanceNotFound
			}
			return fmt.Errorf("failed to get attendance: %w", err)
		}
		return d.evaluate(ctx, tx, attendance.UserID, "attendance:"+attendance.ID.String(), result)
	})
}

// OnSkillVerified evaluates milestones for the skill holder
func (d *EventDispatcher) OnSkillVerified(ctx context.Context, tx *gorm.DB, userSkillID uuid.UUID) (*DispatchResult, error) {
	return d.run(ctx, tx, "OnSkillVerified", func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error {
		userSkill, err := d.repo.Skill().GetUserSkill(ctx, tx, userSkillID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrUserSkillNotFound
			}
			return fmt.Errorf("failed to get user skill: %w", err)
		}
		if !userSkill.IsVerified {
			return newEngineError("dispatcher", "OnSkillVerified", ErrStructuralViolation,
				"user skill %s is not verified", userSkill.ID)
		}
		return d.evaluate(ctx, tx, userSkill.UserID, "skill_verified:"+userSkill.ID.String(), result)
	})
}

// OnPrerequisiteEdgeRequested validates and inserts "skillID requires prerequisiteID"
func (d *EventDispatcher) OnPrerequisiteEdgeRequested(ctx context.Context, tx *gorm.DB, skillID, prerequisiteID uuid.UUID, actorID string) (*DispatchResult, error) {
	return d.run(ctx, tx, "OnPrerequisiteEdgeRequested", func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error {
		for _, id := range []uuid.UUID{skillID, prerequisiteID} {
			if _, err := d.repo.Skill().GetByID(ctx, tx, id); err != nil {
				if repositories.IsNotFoundError(err) {
					return ErrSkillNotFound
				}
				return fmt.Errorf("failed to get skill: %w", err)
			}
		}

		skills := d.repo.Skill()
		if err := skills.LockPrerequisiteGraph(ctx, tx); err != nil {
			return err
		}
		edges, err := skills.ListPrerequisiteEdges(ctx, tx)
		if err != nil {
			return err
		}

		graph := make(PrerequisiteGraph, len(edges))
		for _, edge := range edges {
			graph.AddEdge(edge.SkillID, edge.PrerequisiteID)
		}
		if err := CanAddEdge(graph, skillID, prerequisiteID); err != nil {
			return err
		}

		inserted, err := skills.AddPrerequisite(ctx, tx, &models.SkillPrerequisite{
			SkillID:        skillID,
			PrerequisiteID: prerequisiteID,
			CreatedBy:      actorID,
		})
		if err != nil {
			return err
		}
		return d.recordEdge(ctx, tx, "skill", skillID, prerequisiteID, actorID, inserted, result)
	})
}

// OnCoursePrerequisiteRequested validates and inserts "courseID requires prerequisiteID"
func (d *EventDispatcher) OnCoursePrerequisiteRequested(ctx context.Context, tx *gorm.DB, courseID, prerequisiteID uuid.UUID, actorID string) (*DispatchResult, error) {
	return d.run(ctx, tx, "OnCoursePrerequisiteRequested", func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error {
		for _, id := range []uuid.UUID{courseID, prerequisiteID} {
			if _, err := d.repo.Course().GetByID(ctx, tx, id); err != nil {
				if repositories.IsNotFoundError(err) {
					return ErrCourseNotFound
				}
				return fmt.Errorf("failed to get course: %w", err)
			}
		}

		courses := d.repo.Course()
		if err := courses.LockPrerequisiteGraph(ctx, tx); err != nil {
			return err
		}
		edges, err := courses.ListPrerequisiteEdges(ctx, tx)
		if err != nil {
			return err
		}

		graph := make(PrerequisiteGraph, len(edges))
		for _, edge := range edges {
			graph.AddEdge(edge.CourseID, edge.PrerequisiteID)
		}
		if err := CanAddEdge(graph, courseID, prerequisiteID); err != nil {
			return err
		}

		inserted, err := courses.AddPrerequisite(ctx, tx, &models.CoursePrerequisite{
			CourseID:       courseID,
			PrerequisiteID: prerequisiteID,
			CreatedBy:      actorID,
		})
		if err != nil {
			return err
		}
		return d.recordEdge(ctx, tx, "course", courseID, prerequisiteID, actorID, inserted, result)
	})
}

// OnEnrollmentTransitionRequested applies a requested action and evaluates milestones when the status moved
func (d *EventDispatcher) OnEnrollmentTransitionRequested(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, action EnrollmentAction, opts TransitionOptions) (*DispatchResult, error) {
	return d.run(ctx, tx, "OnEnrollmentTransitionRequested", func(ctx context.Context, tx *gorm.DB, result *DispatchResult) error {
		if action == ActionComplete {
			return newEngineError(enrollmentComponent, "OnEnrollmentTransitionRequested", ErrInvalidTransition,
				"completion is derived from progress and cannot be requested")
		}

		enrollment, err := d.lockEnrollment(ctx, tx, enrollmentID)
		if err != nil {
			return err
		}

		outcome, err := d.stateMachine.Apply(ctx, tx, enrollment, action, opts)
		if err != nil {
			return err
		}

		result.EnrollmentID = &enrollment.ID
		result.CompletionPercentage = enrollment.CompletionPercentage
		result.Status = enrollment.Status
		result.CertificateIssued = outcome.CertificateIssued
		if !outcome.Changed {
			return nil
		}

		result.addEvents(outcome.Events...)
		result.touchCourse(enrollment.CourseID)
		return d.evaluate(ctx, tx, enrollment.UserID, fmt.Sprintf("transition:%s:%s", action, enrollment.ID), result)
	})
}

func (d *EventDispatcher) lockEnrollment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Enrollment, error) {
	enrollment, err := d.repo.Enrollment().GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// aggregate persists the recomputed percentage and applies derived completion
func (d *EventDispatcher) aggregate(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, trigger string, result *DispatchResult) error {
	completion, err := d.aggregator.Recompute(ctx, tx, enrollment)
	if err != nil {
		return err
	}

	if completion.Percentage != enrollment.CompletionPercentage {
		if err := d.repo.Enrollment().UpdateFields(ctx, tx, enrollment.ID, map[string]interface{}{
			"completion_percentage": completion.Percentage,
		}); err != nil {
			return fmt.Errorf("failed to update completion percentage: %w", err)
		}
		enrollment.CompletionPercentage = completion.Percentage
		result.touchCourse(enrollment.CourseID)
	}

	if completion.ShouldComplete {
		switch enrollment.Status {
		case models.EnrollmentWithdrawn, models.EnrollmentFailed:
			d.logger.Warn("Skipping derived completion of closed enrollment",
				"enrollment_id", enrollment.ID,
				"status", enrollment.Status)
		default:
			outcome, err := d.stateMachine.Apply(ctx, tx, enrollment, ActionComplete, TransitionOptions{Trigger: trigger})
			if err != nil {
				return err
			}
			result.CertificateIssued = outcome.CertificateIssued
			result.addEvents(outcome.Events...)
			result.touchCourse(enrollment.CourseID)
		}
	}

	result.EnrollmentID = &enrollment.ID
	result.CompletionPercentage = enrollment.CompletionPercentage
	result.Status = enrollment.Status
	return nil
}

func (d *EventDispatcher) evaluate(ctx context.Context, tx *gorm.DB, userID, trigger string, result *DispatchResult) error {
	milestones, err := d.achievements.EvaluateMilestones(ctx, tx, userID, trigger)
	if err != nil {
		return err
	}

	result.Awarded = append(result.Awarded, milestones.Awarded...)
	result.MilestoneIncomplete = result.MilestoneIncomplete || milestones.Incomplete
	result.addEvents(milestones.Events...)
	if len(milestones.Awarded) > 0 {
		result.touchUser(userID)
	}
	return nil
}

func (d *EventDispatcher) recordEdge(ctx context.Context, tx *gorm.DB, kind string, nodeID, prerequisiteID uuid.UUID, actorID string, inserted bool, result *DispatchResult) error {
	result.EdgeAdded = inserted
	if !inserted {
		return nil
	}

	detail := map[string]interface{}{
		"kind":            kind,
		"node_id":         nodeID,
		"prerequisite_id": prerequisiteID,
	}
	if err := recordActivity(ctx, tx, d.repo, actorID, models.ActivityPrerequisiteChange, detail); err != nil {
		return err
	}
	result.addEvents(events.NewEvent(events.PrerequisiteAdded, actorID, detail))

	d.logger.Info("Prerequisite added",
		"kind", kind,
		"node_id", nodeID,
		"prerequisite_id", prerequisiteID)
	return nil
}
