package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/training-service/internal/models"
)

func TestReportService_CourseOverview(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "RPT-1", 1, 0)

	done := env.enroll(t, fixture.course.ID, learner)
	env.completeLesson(t, done.ID, fixture.lessons[0].ID, learner)
	left := env.enroll(t, fixture.course.ID, learner2)
	_, err := env.manager.Enrollment().Transition(env.ctx, left.ID, &TransitionRequest{Action: "withdraw"}, learner2)
	require.NoError(t, err)

	overview, err := env.manager.Report().GetCourseOverview(env.ctx, fixture.course.ID, trainer)
	require.NoError(t, err)
	assert.Equal(t, "RPT-1", overview.CourseCode)
	assert.EqualValues(t, 2, overview.TotalEnrolled)
	assert.EqualValues(t, 1, overview.Completed)
	assert.EqualValues(t, 1, overview.Withdrawn)
	assert.InDelta(t, 50.0, overview.CompletionRate, 0.001)
	assert.InDelta(t, 50.0, overview.AveragePercentage, 0.001)

	_, err = env.manager.Report().GetCourseOverview(env.ctx, fixture.course.ID, learner)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	_, err = env.manager.Report().GetCourseOverview(env.ctx, uuid.New(), admin)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestReportService_ExportCourseReport(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newCourse(t, "RPT-2", 1, 0)
	enrollment := env.enroll(t, fixture.course.ID, learner)
	env.completeLesson(t, enrollment.ID, fixture.lessons[0].ID, learner)

	report, err := env.manager.Report().ExportCourseReport(env.ctx, fixture.course.ID, admin)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report.FileName, "RPT-2-progress-"))
	assert.True(t, strings.HasSuffix(report.FileName, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(report.Content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, enrollmentsSheet}, f.GetSheetList())

	code, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "RPT-2", code)

	rows, err := f.GetRows(enrollmentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Enrollment", rows[0][0])
	assert.Equal(t, enrollment.ID.String(), rows[1][0])
	assert.Equal(t, "Lena Learner", rows[1][2])
	assert.Equal(t, string(models.EnrollmentCompleted), rows[1][3])
	assert.Equal(t, "100", rows[1][4])

	_, err = env.manager.Report().ExportCourseReport(env.ctx, fixture.course.ID, learner)
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)
}
