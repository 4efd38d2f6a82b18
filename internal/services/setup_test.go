package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/training-service/internal/validator"
	"github.com/SAP-F-2025/training-service/pkg"
)

var (
	admin    = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	trainer  = models.Actor{UserID: "trainer-1", Role: models.RoleTrainer}
	learner  = models.Actor{UserID: "learner-1", Role: models.RoleParticipant}
	learner2 = models.Actor{UserID: "learner-2", Role: models.RoleParticipant}
)

type fakeUserRepository struct {
	users map[string]*models.User
}

func (f *fakeUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s not found", id)
}

func (f *fakeUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepository) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, ok := f.users[id]
	return ok && u.Role == role, nil
}

type testEnv struct {
	ctx       context.Context
	db        *gorm.DB
	repo      repositories.Repository
	manager   *serviceManager
	publisher *events.MockEventPublisher
}

func (e *testEnv) engine() *AchievementEngine { return e.manager.achievements }

func (e *testEnv) dispatcher() *EventDispatcher { return e.manager.dispatcher }

// newTestEnv builds the full stack on a private in-memory SQLite database. A single open
// connection makes concurrent transactions run one after another.
func newTestEnv(t *testing.T, configure ...func(*ServiceManagerConfig)) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, pkg.MigrateDatabase(db))

	users := &fakeUserRepository{users: map[string]*models.User{
		learner.UserID:  {ID: learner.UserID, FullName: "Lena Learner", Role: models.RoleParticipant},
		learner2.UserID: {ID: learner2.UserID, FullName: "Sam Second", Role: models.RoleParticipant},
	}}
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: users})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)

	config := ServiceManagerConfig{MaxMilestonePasses: DefaultMaxMilestonePasses, Publisher: publisher}
	for _, fn := range configure {
		fn(&config)
	}

	manager := NewServiceManager(db, repo, logger, validator.New(), config).(*serviceManager)
	require.NoError(t, manager.Initialize(context.Background()))

	return &testEnv{
		ctx:       context.Background(),
		db:        db,
		repo:      repo,
		manager:   manager,
		publisher: publisher,
	}
}

type courseFixture struct {
	course      *models.Course
	lessons     []*models.Lesson
	assignments []*models.Assignment
}

// newCourse creates a course owned by trainer with the given required lessons and assignments
func (e *testEnv) newCourse(t *testing.T, code string, lessons, assignments int, mutate ...func(*CreateCourseRequest)) *courseFixture {
	t.Helper()

	req := &CreateCourseRequest{
		Code:                  code,
		Title:                 "Course " + code,
		Difficulty:            models.DifficultyBeginner,
		DeliveryMethod:        models.DeliveryBlended,
		DurationHours:         10,
		IsCertificateProvided: true,
	}
	for _, fn := range mutate {
		fn(req)
	}

	course, err := e.manager.Course().Create(e.ctx, req, trainer)
	require.NoError(t, err)

	fixture := &courseFixture{course: course}
	if lessons > 0 {
		module, err := e.manager.Course().AddModule(e.ctx, course.ID, &CreateModuleRequest{Title: "Module 1", Order: 1, DurationHours: 2}, trainer)
		require.NoError(t, err)
		for i := 0; i < lessons; i++ {
			lesson, err := e.manager.Course().AddLesson(e.ctx, module.ID, &CreateLessonRequest{
				Title: fmt.Sprintf("Lesson %d", i+1),
				Order: i + 1,
			}, trainer)
			require.NoError(t, err)
			fixture.lessons = append(fixture.lessons, lesson)
		}
	}
	for i := 0; i < assignments; i++ {
		assignment, err := e.manager.Course().AddAssignment(e.ctx, course.ID, &CreateAssignmentRequest{
			Title:    fmt.Sprintf("Assignment %d", i+1),
			MaxScore: 100,
		}, trainer)
		require.NoError(t, err)
		fixture.assignments = append(fixture.assignments, assignment)
	}

	return fixture
}

func (e *testEnv) enroll(t *testing.T, courseID uuid.UUID, actor models.Actor) *models.Enrollment {
	t.Helper()
	enrollment, err := e.manager.Enrollment().Enroll(e.ctx, courseID, actor)
	require.NoError(t, err)
	return enrollment
}

func (e *testEnv) completeLesson(t *testing.T, enrollmentID, lessonID uuid.UUID, actor models.Actor) *ProgressResponse {
	t.Helper()
	resp, err := e.manager.Progress().Record(e.ctx, enrollmentID, &ProgressUpdateRequest{
		LessonID: &lessonID,
		Status:   models.ProgressCompleted,
	}, actor)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) completeAssignment(t *testing.T, enrollmentID, assignmentID uuid.UUID, actor models.Actor) *ProgressResponse {
	t.Helper()
	score := 90.0
	resp, err := e.manager.Progress().Record(e.ctx, enrollmentID, &ProgressUpdateRequest{
		AssignmentID: &assignmentID,
		Status:       models.ProgressCompleted,
		Score:        &score,
	}, actor)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) reloadEnrollment(t *testing.T, id uuid.UUID) *models.Enrollment {
	t.Helper()
	enrollment, err := e.repo.Enrollment().GetByID(e.ctx, nil, id)
	require.NoError(t, err)
	return enrollment
}

// seedCompletedEnrollments inserts finished enrollments directly, bypassing the engine
func (e *testEnv) seedCompletedEnrollments(t *testing.T, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		course := &models.Course{
			Code:           fmt.Sprintf("SEED-%s", uuid.NewString()[:8]),
			Title:          "Seeded",
			Difficulty:     models.DifficultyBeginner,
			DeliveryMethod: models.DeliverySelfPaced,
			DurationHours:  1,
			IsActive:       true,
		}
		require.NoError(t, e.db.Create(course).Error)
		require.NoError(t, e.db.Create(&models.Enrollment{
			UserID:               userID,
			CourseID:             course.ID,
			Status:               models.EnrollmentCompleted,
			CompletionPercentage: 100,
		}).Error)
	}
}

func (e *testEnv) awardCount(t *testing.T, userID, code string) int64 {
	t.Helper()
	achievement, err := e.repo.Achievement().GetByCode(e.ctx, nil, code)
	require.NoError(t, err)
	count, err := e.repo.Achievement().CountByUserAndAchievement(e.ctx, nil, userID, achievement.ID)
	require.NoError(t, err)
	return count
}

func (e *testEnv) activityCount(t *testing.T, userID string, activityType models.ActivityType) int64 {
	t.Helper()
	count, err := e.repo.Activity().CountByUserAndType(e.ctx, nil, userID, activityType)
	require.NoError(t, err)
	return count
}

func awardedCodes(awards []*models.UserAchievement) []string {
	codes := make([]string, 0, len(awards))
	for _, a := range awards {
		if a.Achievement != nil {
			codes = append(codes, a.Achievement.Code)
		}
	}
	return codes
}
