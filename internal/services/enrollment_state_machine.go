package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
)

const enrollmentComponent = "enrollment"

type EnrollmentAction string

const (
	ActionApprove  EnrollmentAction = "approve"
	ActionStart    EnrollmentAction = "start"
	ActionWithdraw EnrollmentAction = "withdraw"
	ActionFail     EnrollmentAction = "fail"
	// ActionComplete is only ever derived from progress, never requested
	ActionComplete EnrollmentAction = "complete"
)

type transitionRule struct {
	to   models.EnrollmentStatus
	from []models.EnrollmentStatus
}

var enrollmentTransitions = map[EnrollmentAction]transitionRule{
	ActionApprove: {
		to:   models.EnrollmentApproved,
		from: []models.EnrollmentStatus{models.EnrollmentPending},
	},
	ActionStart: {
		to:   models.EnrollmentInProgress,
		from: []models.EnrollmentStatus{models.EnrollmentPending, models.EnrollmentApproved},
	},
	ActionWithdraw: {
		to:   models.EnrollmentWithdrawn,
		from: []models.EnrollmentStatus{models.EnrollmentPending, models.EnrollmentApproved, models.EnrollmentInProgress},
	},
	ActionFail: {
		to:   models.EnrollmentFailed,
		from: []models.EnrollmentStatus{models.EnrollmentInProgress},
	},
	ActionComplete: {
		to:   models.EnrollmentCompleted,
		from: []models.EnrollmentStatus{models.EnrollmentPending, models.EnrollmentApproved, models.EnrollmentInProgress},
	},
}

type TransitionOptions struct {
	ActorID string
	Grade   *float64
	Trigger string
}

type TransitionOutcome struct {
	From              models.EnrollmentStatus
	To                models.EnrollmentStatus
	Changed           bool
	CertificateIssued bool
	Events            []*events.Event
}

// EnrollmentStateMachine applies the transition table to a locked enrollment row
type EnrollmentStateMachine struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewEnrollmentStateMachine(repo repositories.Repository, logger *slog.Logger) *EnrollmentStateMachine {
	return &EnrollmentStateMachine{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Apply moves the enrollment and mutates it in place. Requesting the current status is a no-op.
func (m *EnrollmentStateMachine) Apply(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, action EnrollmentAction, opts TransitionOptions) (*TransitionOutcome, error) {
	rule, ok := enrollmentTransitions[action]
	if !ok {
		return nil, newEngineError(enrollmentComponent, "Apply", ErrInvalidTransition, "unknown action %q", action)
	}

	outcome := &TransitionOutcome{From: enrollment.Status, To: enrollment.Status}
	if enrollment.Status == rule.to {
		return outcome, nil
	}
	if !slices.Contains(rule.from, enrollment.Status) {
		return nil, newEngineError(enrollmentComponent, "Apply", ErrInvalidTransition,
			"cannot %s enrollment in status %s", action, enrollment.Status)
	}

	now := m.now()
	fields := map[string]interface{}{"status": rule.to}

	if rule.to == models.EnrollmentInProgress && enrollment.StartedAt == nil {
		fields["started_at"] = now
		enrollment.StartedAt = &now
	}

	if rule.to == models.EnrollmentFailed && opts.Grade != nil {
		fields["grade"] = *opts.Grade
		enrollment.Grade = opts.Grade
	}

	if rule.to == models.EnrollmentCompleted {
		issued, err := m.applyCompletion(ctx, tx, enrollment, fields, now)
		if err != nil {
			return nil, err
		}
		outcome.CertificateIssued = issued
	}

	if err := m.repo.Enrollment().UpdateFields(ctx, tx, enrollment.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to transition enrollment: %w", err)
	}
	enrollment.Status = rule.to
	outcome.To = rule.to
	outcome.Changed = true

	if err := m.audit(ctx, tx, enrollment, action, outcome, opts); err != nil {
		return nil, err
	}

	m.logger.Info("Enrollment transitioned",
		"enrollment_id", enrollment.ID,
		"action", action,
		"from", outcome.From,
		"to", outcome.To,
		"certificate_issued", outcome.CertificateIssued)

	return outcome, nil
}

// applyCompletion stamps the set-once completion fields and issues the certificate
func (m *EnrollmentStateMachine) applyCompletion(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, fields map[string]interface{}, now time.Time) (bool, error) {
	if enrollment.CompletedAt == nil {
		fields["completed_at"] = now
		enrollment.CompletedAt = &now
	}

	if enrollment.StartedAt != nil && enrollment.CompletionTimeSeconds == nil {
		seconds := int64(enrollment.CompletedAt.Sub(*enrollment.StartedAt) / time.Second)
		if seconds < 0 {
			seconds = 0
		}
		fields["completion_time_seconds"] = seconds
		enrollment.CompletionTimeSeconds = &seconds
	}

	if enrollment.CertificateIssued {
		return false, nil
	}

	course := enrollment.Course
	if course == nil {
		var err error
		course, err = m.repo.Course().GetByID(ctx, tx, enrollment.CourseID)
		if err != nil {
			return false, fmt.Errorf("failed to get course: %w", err)
		}
	}
	if !course.IsCertificateProvided {
		return false, nil
	}

	fields["certificate_issued"] = true
	fields["certificate_issued_at"] = now
	enrollment.CertificateIssued = true
	enrollment.CertificateIssuedAt = &now
	return true, nil
}

func (m *EnrollmentStateMachine) audit(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, action EnrollmentAction, outcome *TransitionOutcome, opts TransitionOptions) error {
	detail := map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"course_id":     enrollment.CourseID,
		"action":        action,
		"from":          outcome.From,
		"to":            outcome.To,
	}
	if opts.ActorID != "" {
		detail["actor_id"] = opts.ActorID
	}
	if opts.Trigger != "" {
		detail["trigger"] = opts.Trigger
	}
	if err := recordActivity(ctx, tx, m.repo, enrollment.UserID, models.ActivityEnrollmentStatusChange, detail); err != nil {
		return err
	}
	outcome.Events = append(outcome.Events, events.NewEvent(events.EnrollmentStatusChanged, enrollment.UserID, detail))

	if outcome.To == models.EnrollmentCompleted {
		completion := map[string]interface{}{
			"enrollment_id":           enrollment.ID,
			"course_id":               enrollment.CourseID,
			"completed_at":            enrollment.CompletedAt,
			"completion_time_seconds": enrollment.CompletionTimeSeconds,
		}
		if err := recordActivity(ctx, tx, m.repo, enrollment.UserID, models.ActivityCourseCompletion, completion); err != nil {
			return err
		}
		outcome.Events = append(outcome.Events, events.NewEvent(events.EnrollmentCompleted, enrollment.UserID, completion))
	}

	if outcome.CertificateIssued {
		certificate := map[string]interface{}{
			"enrollment_id": enrollment.ID,
			"course_id":     enrollment.CourseID,
			"issued_at":     enrollment.CertificateIssuedAt,
		}
		if err := recordActivity(ctx, tx, m.repo, enrollment.UserID, models.ActivityCertificate, certificate); err != nil {
			return err
		}
		outcome.Events = append(outcome.Events, events.NewEvent(events.CertificateIssued, enrollment.UserID, certificate))
	}

	return nil
}
