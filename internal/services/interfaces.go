package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateCourseRequest = validator.CourseCreateRequest
type CreateModuleRequest = validator.ModuleCreateRequest
type CreateLessonRequest = validator.LessonCreateRequest
type CreateAssignmentRequest = validator.AssignmentCreateRequest
type CreateSessionRequest = validator.SessionCreateRequest
type PrerequisiteRequest = validator.PrerequisiteRequest
type TransitionRequest = validator.TransitionRequest
type ProgressUpdateRequest = validator.ProgressUpdateRequest
type AttendanceRecordRequest = validator.AttendanceRecordRequest
type CreateSkillRequest = validator.SkillCreateRequest
type DeclareSkillRequest = validator.UserSkillDeclareRequest
type ManualAwardRequest = validator.ManualAwardRequest

type CourseResponse struct {
	*models.Course
	Prerequisites []*models.Course `json:"prerequisites"`
	Enrolled      int64            `json:"enrolled"`
}

type EnrollmentResponse struct {
	*models.Enrollment
	Progress []*models.Progress `json:"progress,omitempty"`
}

type ProgressResponse struct {
	Progress *models.Progress `json:"progress"`
	Dispatch *DispatchResult  `json:"dispatch"`
}

type AttendanceResponse struct {
	Attendance *models.SessionAttendance `json:"attendance"`
	Dispatch   *DispatchResult           `json:"dispatch"`
}

type VerificationResponse struct {
	UserSkill *models.UserSkill `json:"user_skill"`
	Dispatch  *DispatchResult   `json:"dispatch"`
}

// GraphCheckResponse reports nodes that sit on or behind a cycle in the persisted graph
type GraphCheckResponse struct {
	Nodes      int         `json:"nodes"`
	Edges      int         `json:"edges"`
	Healthy    bool        `json:"healthy"`
	CycleNodes []uuid.UUID `json:"cycle_nodes"`
}

// CourseReport is a rendered xlsx export
type CourseReport struct {
	FileName string
	Content  []byte
}

// ===== SERVICE INTERFACES =====

type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, actor models.Actor) (*models.Course, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CourseResponse, error)
	AddModule(ctx context.Context, courseID uuid.UUID, req *CreateModuleRequest, actor models.Actor) (*models.Module, error)
	AddLesson(ctx context.Context, moduleID uuid.UUID, req *CreateLessonRequest, actor models.Actor) (*models.Lesson, error)
	AddAssignment(ctx context.Context, courseID uuid.UUID, req *CreateAssignmentRequest, actor models.Actor) (*models.Assignment, error)
	AddSession(ctx context.Context, courseID uuid.UUID, req *CreateSessionRequest, actor models.Actor) (*models.LiveSession, error)
	AddPrerequisite(ctx context.Context, courseID uuid.UUID, req *PrerequisiteRequest, actor models.Actor) (*DispatchResult, error)
}

type EnrollmentService interface {
	Enroll(ctx context.Context, courseID uuid.UUID, actor models.Actor) (*models.Enrollment, error)
	GetByID(ctx context.Context, id uuid.UUID, actor models.Actor) (*EnrollmentResponse, error)
	List(ctx context.Context, params models.ListEnrollmentsParams, actor models.Actor) (*models.PaginatedResponse, error)
	Transition(ctx context.Context, id uuid.UUID, req *TransitionRequest, actor models.Actor) (*DispatchResult, error)
}

type ProgressService interface {
	Record(ctx context.Context, enrollmentID uuid.UUID, req *ProgressUpdateRequest, actor models.Actor) (*ProgressResponse, error)
	ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID, actor models.Actor) ([]*models.Progress, error)
}

type AttendanceService interface {
	Record(ctx context.Context, sessionID uuid.UUID, req *AttendanceRecordRequest, actor models.Actor) (*AttendanceResponse, error)
}

type SkillService interface {
	Create(ctx context.Context, req *CreateSkillRequest, actor models.Actor) (*models.Skill, error)
	AddPrerequisite(ctx context.Context, skillID uuid.UUID, req *PrerequisiteRequest, actor models.Actor) (*DispatchResult, error)
	CheckGraph(ctx context.Context) (*GraphCheckResponse, error)
	Declare(ctx context.Context, skillID uuid.UUID, req *DeclareSkillRequest, actor models.Actor) (*models.UserSkill, error)
	Verify(ctx context.Context, userSkillID uuid.UUID, actor models.Actor) (*VerificationResponse, error)
}

type AchievementService interface {
	ListCatalog(ctx context.Context) ([]*models.Achievement, error)
	GetUserSummary(ctx context.Context, userID string, actor models.Actor) (*models.UserAchievementSummary, error)
	AwardManually(ctx context.Context, userID string, req *ManualAwardRequest, actor models.Actor) (*DispatchResult, error)
}

type ReportService interface {
	GetCourseOverview(ctx context.Context, courseID uuid.UUID, actor models.Actor) (*models.CourseProgressOverview, error)
	ExportCourseReport(ctx context.Context, courseID uuid.UUID, actor models.Actor) (*CourseReport, error)
}

// ServiceManager wires the engines and services once and hands them out
type ServiceManager interface {
	Initialize(ctx context.Context) error

	Course() CourseService
	Enrollment() EnrollmentService
	Progress() ProgressService
	Attendance() AttendanceService
	Skill() SkillService
	Achievement() AchievementService
	Report() ReportService
	Dispatcher() *EventDispatcher

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
