package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
)

func TestProgressService_RecordCompletesCourse(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-101", 2, 1)
	enrollment := env.enroll(t, fixture.course.ID, learner)
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)

	first := env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)
	assert.Equal(t, 33, first.Dispatch.CompletionPercentage)
	assert.Equal(t, models.EnrollmentPending, first.Dispatch.Status)
	assert.False(t, first.Dispatch.CertificateIssued)
	assert.Empty(t, first.Dispatch.Awarded)

	second := env.completeLesson(t, enrollment.ID, fixture.lessons[1].ID, learner)
	assert.Equal(t, 66, second.Dispatch.CompletionPercentage)

	last := env.completeAssignment(t, enrollment.ID, fixture.assignments[0].ID, learner)
	assert.Equal(t, 100, last.Dispatch.CompletionPercentage)
	assert.Equal(t, models.EnrollmentCompleted, last.Dispatch.Status)
	assert.True(t, last.Dispatch.CertificateIssued)
	assert.Equal(t, []string{"FIRST_COURSE_COMPLETION"}, awardedCodes(last.Dispatch.Awarded))

	stored := env.reloadEnrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentCompleted, stored.Status)
	assert.Equal(t, 100, stored.CompletionPercentage)
	assert.True(t, stored.CertificateIssued)
	require.NotNil(t, stored.CompletedAt)
	require.NotNil(t, stored.CertificateIssuedAt)

	assert.Len(t, env.publisher.EventsOfType(events.CertificateIssued), 1)
	assert.Len(t, env.publisher.EventsOfType(events.EnrollmentCompleted), 1)
	assert.Len(t, env.publisher.EventsOfType(events.AchievementAwarded), 1)
	assert.Len(t, env.publisher.EventsOfType(events.ProgressRecorded), 3)

	assert.EqualValues(t, 2, env.activityCount(t, learner.UserID, models.ActivityLessonCompletion))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityAssignmentCompletion))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityCourseCompletion))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityCertificate))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityAchievementEarned))
}

func TestProgressService_RecordIsIdempotentAfterCompletion(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-102", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	first := env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)
	require.True(t, first.Dispatch.CertificateIssued)
	completedAt := env.reloadEnrollment(t, enrollment.ID).CompletedAt

	again := env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)
	assert.Equal(t, models.EnrollmentCompleted, again.Dispatch.Status)
	assert.False(t, again.Dispatch.CertificateIssued)
	assert.Empty(t, again.Dispatch.Awarded)
	assert.Equal(t, 2, again.Progress.AttemptCount)

	stored := env.reloadEnrollment(t, enrollment.ID)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, completedAt.Equal(*stored.CompletedAt))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityCertificate))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityLessonCompletion))
	assert.EqualValues(t, 1, env.awardCount(t, learner.UserID, "FIRST_COURSE_COMPLETION"))
}

func TestProgressService_RecordRejectsStructuralViolations(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-103", 1, 1)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	lessonID := fixture.lessons[0].ID
	assignmentID := fixture.assignments[0].ID

	tests := []struct {
		name string
		req  *ProgressUpdateRequest
	}{
		{name: "no target", req: &ProgressUpdateRequest{Status: models.ProgressCompleted}},
		{name: "both targets", req: &ProgressUpdateRequest{LessonID: &lessonID, AssignmentID: &assignmentID, Status: models.ProgressCompleted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.manager.Progress().Record(env.ctx, enrollment.ID, tt.req, learner)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructuralViolation)
		})
	}

	rows, err := env.repo.Progress().ListByEnrollment(env.ctx, nil, enrollment.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, env.reloadEnrollment(t, enrollment.ID).CompletionPercentage)
}

func TestProgressService_RecordChecksOwnershipAndTarget(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-104", 1, 0)
	other := env.newCourse(t, "GO-105", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	foreignLesson := other.lessons[0].ID
	_, err := env.manager.Progress().Record(env.ctx, enrollment.ID, &ProgressUpdateRequest{
		LessonID: &foreignLesson,
		Status:   models.ProgressCompleted,
	}, learner)
	assert.ErrorIs(t, err, ErrTargetNotInCourse)

	lessonID := fixture.lessons[0].ID
	_, err = env.manager.Progress().Record(env.ctx, enrollment.ID, &ProgressUpdateRequest{
		LessonID: &lessonID,
		Status:   models.ProgressInProgress,
	}, learner2)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	_, err = env.manager.Progress().Record(env.ctx, uuid.New(), &ProgressUpdateRequest{
		LessonID: &lessonID,
		Status:   models.ProgressInProgress,
	}, learner)
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)

	// Staff may record on behalf of the learner
	resp, err := env.manager.Progress().Record(env.ctx, enrollment.ID, &ProgressUpdateRequest{
		LessonID: &lessonID,
		Status:   models.ProgressInProgress,
	}, trainer)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Dispatch.CompletionPercentage)
}

func TestProgressService_WithdrawnEnrollmentIsNotCompleted(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-106", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	_, err := env.manager.Enrollment().Transition(env.ctx, enrollment.ID, &TransitionRequest{Action: "withdraw"}, learner)
	require.NoError(t, err)

	resp := env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)
	assert.Equal(t, 100, resp.Dispatch.CompletionPercentage)
	assert.Equal(t, models.EnrollmentWithdrawn, resp.Dispatch.Status)
	assert.False(t, resp.Dispatch.CertificateIssued)

	stored := env.reloadEnrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentWithdrawn, stored.Status)
	assert.Equal(t, 100, stored.CompletionPercentage)
	assert.False(t, stored.CertificateIssued)
	assert.Nil(t, stored.CompletedAt)
}

func TestProgressService_ConcurrentCompletionIssuesOneCertificate(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-107", 2, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		lessonID := fixture.lessons[i%2].ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.manager.Progress().Record(env.ctx, enrollment.ID, &ProgressUpdateRequest{
				LessonID: &lessonID,
				Status:   models.ProgressCompleted,
			}, learner)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored := env.reloadEnrollment(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentCompleted, stored.Status)
	assert.True(t, stored.CertificateIssued)
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityCertificate))
	assert.EqualValues(t, 1, env.activityCount(t, learner.UserID, models.ActivityCourseCompletion))
	assert.EqualValues(t, 1, env.awardCount(t, learner.UserID, "FIRST_COURSE_COMPLETION"))
	assert.Len(t, env.publisher.EventsOfType(events.CertificateIssued), 1)
}

func TestEventDispatcher_OnProgressSavedUnknownProgress(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.dispatcher().OnProgressSaved(env.ctx, nil, uuid.New())
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestEventDispatcher_CallerTransactionDefersFlush(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "GO-108", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)
	env.publisher.ClearEvents()

	lessonID := fixture.lessons[0].ID
	var result *DispatchResult
	err := env.db.Transaction(func(tx *gorm.DB) error {
		progress := &models.Progress{
			EnrollmentID: enrollment.ID,
			LessonID:     &lessonID,
			Status:       models.ProgressCompleted,
		}
		if err := env.repo.Progress().Create(env.ctx, tx, progress); err != nil {
			return err
		}
		var err error
		result, err = env.dispatcher().OnProgressSaved(env.ctx, tx, progress.ID)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.CertificateIssued)
	assert.NotEmpty(t, result.Events)
	assert.Empty(t, env.publisher.GetPublishedEvents())

	env.dispatcher().Flush(env.ctx, result)
	assert.Len(t, env.publisher.GetPublishedEvents(), len(result.Events))
}
