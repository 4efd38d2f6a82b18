package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
)

func TestEnrollmentService_Enroll(t *testing.T) {
	env := newTestEnv(t)

	t.Run("pending by default", func(t *testing.T) {
		fixture := env.newCourse(t, "ENR-1", 1, 0)
		enrollment := env.enroll(t, fixture.course.ID, learner)
		assert.Equal(t, models.EnrollmentPending, enrollment.Status)
		assert.Len(t, env.publisher.EventsOfType(events.EnrollmentCreated), 1)

		_, err := env.manager.Enrollment().Enroll(env.ctx, fixture.course.ID, learner)
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	})

	t.Run("auto enrollment approves", func(t *testing.T) {
		fixture := env.newCourse(t, "ENR-2", 1, 0, func(r *CreateCourseRequest) { r.AutoEnrollment = true })
		enrollment := env.enroll(t, fixture.course.ID, learner)
		assert.Equal(t, models.EnrollmentApproved, enrollment.Status)
	})

	t.Run("inactive course", func(t *testing.T) {
		inactive := false
		fixture := env.newCourse(t, "ENR-3", 0, 0, func(r *CreateCourseRequest) { r.IsActive = &inactive })
		_, err := env.manager.Enrollment().Enroll(env.ctx, fixture.course.ID, learner)
		assert.ErrorIs(t, err, ErrCourseInactive)
	})

	t.Run("full course", func(t *testing.T) {
		one := 1
		fixture := env.newCourse(t, "ENR-4", 0, 0, func(r *CreateCourseRequest) { r.MaxParticipants = &one })
		env.enroll(t, fixture.course.ID, learner)
		_, err := env.manager.Enrollment().Enroll(env.ctx, fixture.course.ID, learner2)
		assert.ErrorIs(t, err, ErrCourseFull)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := env.manager.Enrollment().Enroll(env.ctx, uuid.New(), learner)
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})
}

func TestEnrollmentService_EnrollRequiresCompletedPrerequisites(t *testing.T) {
	env := newTestEnv(t)
	basics := env.newCourse(t, "PRE-1", 1, 0)
	advanced := env.newCourse(t, "PRE-2", 1, 0)

	result, err := env.manager.Course().AddPrerequisite(env.ctx, advanced.course.ID, &PrerequisiteRequest{PrerequisiteID: basics.course.ID}, trainer)
	require.NoError(t, err)
	assert.True(t, result.EdgeAdded)

	_, err = env.manager.Enrollment().Enroll(env.ctx, advanced.course.ID, learner)
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "prerequisites_not_met", ruleErr.Rule)
	assert.Equal(t, []string{"PRE-1"}, ruleErr.Context["missing"])

	enrollment := env.enroll(t, basics.course.ID, learner)
	env.completeLesson(t, enrollment.ID, basics.lessons[0].ID, learner)

	advancedEnrollment := env.enroll(t, advanced.course.ID, learner)
	assert.Equal(t, models.EnrollmentPending, advancedEnrollment.Status)
}

func TestEnrollmentService_Transition(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "TRN-1", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	_, err := env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "approve"}, learner)
	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)

	result, err := env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "approve"}, trainer)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, result.Status)

	// Requesting the current status changes nothing
	env.publisher.ClearEvents()
	result, err = env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "approve"}, trainer)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, result.Status)
	assert.Empty(t, env.publisher.EventsOfType(events.EnrollmentStatusChanged))

	result, err = env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "start"}, learner)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, result.Status)
	assert.NotNil(t, env.reloadEnrollment(t, enrollment.ID).StartedAt)

	_, err = env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "approve"}, trainer)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	grade := 40.0
	_, err = env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "withdraw", Grade: &grade}, learner)
	var validationErrs ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	result, err = env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "fail", Grade: &grade}, trainer)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentFailed, result.Status)

	stored := env.reloadEnrollment(t, enrollment.ID)
	require.NotNil(t, stored.Grade)
	assert.Equal(t, grade, *stored.Grade)

	_, err = env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "withdraw"}, learner)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// approve, start and fail each leave one audit row
	assert.EqualValues(t, 3, env.activityCount(t, learner.UserID, models.ActivityEnrollmentStatusChange))
}

func TestEnrollmentService_TransitionRejectsUnknownAction(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "TRN-2", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	_, err := env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "complete"}, admin)
	var validationErrs ValidationErrors
	assert.ErrorAs(t, err, &validationErrs)

	_, err = env.dispatcher().OnEnrollmentTransitionRequested(env.ctx, nil, enrollment.ID, ActionComplete, TransitionOptions{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.EnrollmentPending, env.reloadEnrollment(t, enrollment.ID).Status)
}

func TestEnrollmentService_GetAndList(t *testing.T) {
	env := newTestEnv(t)
	first := env.newCourse(t, "LST-1", 1, 0)
	second := env.newCourse(t, "LST-2", 1, 0)

	mine := env.enroll(t, first.course.ID, learner)
	env.completeLesson(t, mine.ID, first.lessons[0].ID, learner)
	env.enroll(t, second.course.ID, learner2)

	resp, err := env.manager.Enrollment().GetByID(env.ctx, mine.ID, learner)
	require.NoError(t, err)
	assert.Len(t, resp.Progress, 1)

	_, err = env.manager.Enrollment().GetByID(env.ctx, mine.ID, learner2)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	page, err := env.manager.Enrollment().List(env.ctx, models.ListEnrollmentsParams{}, learner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = env.manager.Enrollment().List(env.ctx, models.ListEnrollmentsParams{}, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Size)
}
