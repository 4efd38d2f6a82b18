package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/SAP-F-2025/training-service/internal/events"
	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/training-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
	"github.com/SAP-F-2025/training-service/internal/validator"
	"github.com/SAP-F-2025/training-service/pkg"
)

// fakeParser treats the token as the user ID; "bad" fails
type fakeParser struct{}

func (fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if token == "bad" {
		return nil, errors.New("signature is invalid")
	}
	return &casdoorsdk.Claims{User: casdoorsdk.User{Id: token, Type: "student", DisplayName: "Token " + token}}, nil
}

type fakeDirectory struct {
	users map[string]*models.User
}

func (f *fakeDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: %s", casdoor.ErrUserNotFound, id)
}

func (f *fakeDirectory) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeDirectory) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, ok := f.users[id]
	return ok && u.Role == role, nil
}

type apiEnv struct {
	router    *gin.Engine
	publisher *events.MockEventPublisher
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	directory := &fakeDirectory{users: map[string]*models.User{
		"admin-1":   {ID: "admin-1", FullName: "Ada Admin", Role: models.RoleAdmin},
		"trainer-1": {ID: "trainer-1", FullName: "Tom Trainer", Role: models.RoleTrainer},
		"learner-1": {ID: "learner-1", FullName: "Lena Learner", Role: models.RoleParticipant},
	}}
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: directory})

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(slogger)
	manager := services.NewServiceManager(db, repo, slogger, validator.New(), services.ServiceManagerConfig{
		MaxMilestonePasses: services.DefaultMaxMilestonePasses,
		Publisher:          publisher,
	})
	require.NoError(t, manager.Initialize(context.Background()))

	logger := utils.NewSlogLogger(slogger)
	router := gin.New()
	SetupMiddleware(router, logger)
	auth := NewAuthMiddlewareWithParser(fakeParser{}, directory, logger)
	NewHandlerManager(manager, logger, auth, directory).SetupRoutes(router)

	return &apiEnv{router: router, publisher: publisher}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type idBody struct {
	ID uuid.UUID `json:"id"`
}

func (e *apiEnv) createCourse(t *testing.T, code string) uuid.UUID {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/courses", "trainer-1", map[string]interface{}{
		"code":                    code,
		"title":                   "Course " + code,
		"difficulty":              "BEGINNER",
		"delivery_method":         "SELF_PACED",
		"duration_hours":          4,
		"is_certificate_provided": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[idBody](t, w).ID
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthentication(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("missing header", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/achievements", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/achievements", "bad", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user falls back to claims", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/users/me", "newcomer", nil)
		require.Equal(t, http.StatusOK, w.Code)
		user := decode[models.User](t, w)
		assert.Equal(t, "newcomer", user.ID)
		assert.Equal(t, models.RoleParticipant, user.Role)
		assert.Equal(t, "Token newcomer", user.FullName)
	})

	t.Run("participant cannot create courses", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/courses", "learner-1", map[string]interface{}{"code": "X-1"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestUserLookup(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/users/trainer-1", "learner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Tom Trainer", decode[models.User](t, w).FullName)

	w = env.do(t, http.MethodGet, "/api/v1/users/ghost", "learner-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourseCompletionFlow(t *testing.T) {
	env := newAPIEnv(t)
	courseID := env.createCourse(t, "GO-101")

	w := env.do(t, http.MethodPost, "/api/v1/courses/"+courseID.String()+"/modules", "trainer-1", map[string]interface{}{
		"title": "Basics", "order": 1, "duration_hours": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	moduleID := decode[idBody](t, w).ID

	w = env.do(t, http.MethodPost, "/api/v1/modules/"+moduleID.String()+"/lessons", "trainer-1", map[string]interface{}{
		"title": "Hello", "order": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lessonID := decode[idBody](t, w).ID

	w = env.do(t, http.MethodPost, "/api/v1/courses/"+courseID.String()+"/enroll", "learner-1", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	enrollmentID := decode[idBody](t, w).ID

	w = env.do(t, http.MethodPost, "/api/v1/courses/"+courseID.String()+"/enroll", "learner-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Neither lesson nor assignment
	w = env.do(t, http.MethodPut, "/api/v1/enrollments/"+enrollmentID.String()+"/progress", "learner-1", map[string]interface{}{
		"status": "COMPLETED",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/enrollments/"+enrollmentID.String()+"/progress", "learner-1", map[string]interface{}{
		"lesson_id": lessonID, "status": "COMPLETED",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Dispatch struct {
			CompletionPercentage int                       `json:"completion_percentage"`
			Status               models.EnrollmentStatus   `json:"status"`
			CertificateIssued    bool                      `json:"certificate_issued"`
			Awarded              []*models.UserAchievement `json:"awarded"`
		} `json:"dispatch"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 100, result.Dispatch.CompletionPercentage)
	assert.Equal(t, models.EnrollmentCompleted, result.Dispatch.Status)
	assert.True(t, result.Dispatch.CertificateIssued)
	assert.NotEmpty(t, result.Dispatch.Awarded)

	w = env.do(t, http.MethodGet, "/api/v1/enrollments/"+enrollmentID.String()+"/progress", "learner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Progress](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/v1/users/me/achievements", "learner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.UserAchievementSummary](t, w)
	assert.Equal(t, "learner-1", summary.UserID)
	assert.NotEmpty(t, summary.Achievements)

	w = env.do(t, http.MethodPost, "/api/v1/enrollments/"+enrollmentID.String()+"/transitions", "trainer-1", map[string]interface{}{
		"action": "withdraw",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/courses/"+courseID.String()+"/report.xlsx", "trainer-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, w.Body.Len())

	w = env.do(t, http.MethodGet, "/api/v1/courses/"+courseID.String()+"/report.xlsx", "learner-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.NotEmpty(t, env.publisher.GetPublishedEvents())
}

func TestCoursePrerequisiteCycle(t *testing.T) {
	env := newAPIEnv(t)
	a := env.createCourse(t, "A-100")
	b := env.createCourse(t, "B-100")

	w := env.do(t, http.MethodPost, "/api/v1/courses/"+a.String()+"/prerequisites", "trainer-1", map[string]interface{}{
		"prerequisite_id": b,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/courses/"+a.String()+"/prerequisites", "trainer-1", map[string]interface{}{
		"prerequisite_id": b,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/courses/"+b.String()+"/prerequisites", "trainer-1", map[string]interface{}{
		"prerequisite_id": a,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/courses/"+a.String()+"/enroll", "learner-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRequestErrors(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"malformed id", http.MethodGet, "/api/v1/enrollments/not-a-uuid", "learner-1", nil, http.StatusBadRequest},
		{"unknown enrollment", http.MethodGet, "/api/v1/enrollments/" + uuid.NewString(), "learner-1", nil, http.StatusNotFound},
		{"unknown course", http.MethodGet, "/api/v1/courses/" + uuid.NewString(), "learner-1", nil, http.StatusNotFound},
		{"invalid course payload", http.MethodPost, "/api/v1/courses", "trainer-1", map[string]interface{}{"code": "lower"}, http.StatusBadRequest},
		{"manual award needs admin", http.MethodPost, "/api/v1/users/learner-1/achievements", "trainer-1", map[string]interface{}{"achievement_code": "FIRST_COURSE_COMPLETION"}, http.StatusForbidden},
		{"unknown achievement", http.MethodPost, "/api/v1/users/learner-1/achievements", "admin-1", map[string]interface{}{"achievement_code": "MISSING"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestSkillEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/skills", "trainer-1", map[string]interface{}{"name": "Go", "category": "Programming"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	goSkill := decode[idBody](t, w).ID

	w = env.do(t, http.MethodPost, "/api/v1/skills/"+goSkill.String()+"/prerequisites", "trainer-1", map[string]interface{}{
		"prerequisite_id": goSkill,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/skills/graph/check", "trainer-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[services.GraphCheckResponse](t, w).Healthy)

	w = env.do(t, http.MethodPut, "/api/v1/skills/"+goSkill.String()+"/me", "learner-1", map[string]interface{}{"proficiency": "INTERMEDIATE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	userSkill := decode[idBody](t, w).ID

	w = env.do(t, http.MethodPost, "/api/v1/user-skills/"+userSkill.String()+"/verify", "learner-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/user-skills/"+userSkill.String()+"/verify", "admin-1", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
