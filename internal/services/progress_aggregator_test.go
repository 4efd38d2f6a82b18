package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-service/internal/models"
)

func TestComputeCompletion(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		want      int
	}{
		{name: "empty course", completed: 0, total: 0, want: 0},
		{name: "nothing done", completed: 0, total: 3, want: 0},
		{name: "floors partial progress", completed: 1, total: 3, want: 33},
		{name: "two of three", completed: 2, total: 3, want: 66},
		{name: "all done", completed: 3, total: 3, want: 100},
		{name: "clamps above total", completed: 4, total: 3, want: 100},
		{name: "completions without required items", completed: 2, total: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeCompletion(tt.completed, tt.total))
		})
	}
}

// addOptionalLesson puts a non-required lesson in a fresh module at the given position
func (e *testEnv) addOptionalLesson(t *testing.T, fixture *courseFixture, moduleOrder int) *models.Lesson {
	t.Helper()
	module, err := e.manager.Course().AddModule(e.ctx, fixture.course.ID, &CreateModuleRequest{
		Title:         "Extras",
		Order:         moduleOrder,
		DurationHours: 1,
	}, trainer)
	require.NoError(t, err)

	optional := false
	lesson, err := e.manager.Course().AddLesson(e.ctx, module.ID, &CreateLessonRequest{
		Title:      "Further reading",
		Order:      1,
		IsRequired: &optional,
	}, trainer)
	require.NoError(t, err)
	require.False(t, lesson.IsRequired)
	return lesson
}

func TestProgressAggregator_OptionalLessonsDoNotCount(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "OPT-101", 1, 0)
	optional := env.addOptionalLesson(t, fixture, 2)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	resp := env.completeLesson(t, enrollment.ID, optional.ID, learner)
	assert.Equal(t, 0, resp.Dispatch.CompletionPercentage)
	assert.Equal(t, models.EnrollmentPending, resp.Dispatch.Status)

	result, err := env.manager.aggregator.RecomputeByID(env.ctx, nil, enrollment.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.TotalRequired)
	assert.EqualValues(t, 0, result.CompletedRequired)
	assert.False(t, result.ShouldComplete)

	done := env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)
	assert.Equal(t, 100, done.Dispatch.CompletionPercentage)
	assert.Equal(t, models.EnrollmentCompleted, done.Dispatch.Status)
}

func TestProgressAggregator_OptionalOnlyCourseNeverCompletes(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "OPT-102", 0, 0)
	optional := env.addOptionalLesson(t, fixture, 1)
	enrollment := env.enroll(t, fixture.course.ID, learner)

	resp := env.completeLesson(t, enrollment.ID, optional.ID, learner)
	assert.Equal(t, 0, resp.Dispatch.CompletionPercentage)
	assert.NotEqual(t, models.EnrollmentCompleted, resp.Dispatch.Status)
	assert.False(t, resp.Dispatch.CertificateIssued)

	result, err := env.manager.aggregator.RecomputeByID(env.ctx, nil, enrollment.ID)
	require.NoError(t, err)
	assert.Zero(t, result.TotalRequired)
	assert.Equal(t, 0, result.Percentage)
	assert.False(t, result.ShouldComplete)

	stored := env.reloadEnrollment(t, enrollment.ID)
	assert.NotEqual(t, models.EnrollmentCompleted, stored.Status)
	assert.Equal(t, 0, stored.CompletionPercentage)
	assert.Nil(t, stored.CompletedAt)
}

func TestProgressAggregator_RecomputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "IDM-101", 2, 1)
	enrollment := env.enroll(t, fixture.course.ID, learner)
	env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)

	first, err := env.manager.aggregator.RecomputeByID(env.ctx, nil, enrollment.ID)
	require.NoError(t, err)
	second, err := env.manager.aggregator.RecomputeByID(env.ctx, nil, enrollment.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 33, second.Percentage)

	stored := env.reloadEnrollment(t, enrollment.ID)
	assert.Equal(t, 33, stored.CompletionPercentage)
	assert.Equal(t, models.EnrollmentPending, stored.Status)
}

func TestProgressAggregator_RecomputeByIDUnknownEnrollment(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.manager.aggregator.RecomputeByID(env.ctx, nil, uuid.New())
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
}
