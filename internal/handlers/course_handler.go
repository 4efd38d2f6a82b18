package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
	reportService services.ReportService
}

func NewCourseHandler(courseService services.CourseService, reportService services.ReportService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
		reportService: reportService,
	}
}

// ===== CATALOG =====

// CreateCourse creates a new course
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// GetCourse retrieves a course with its modules, assignments and prerequisites
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.LogRequest(c, "Getting course", "course_id", id)

	course, err := h.courseService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// AddModule appends a module to a course
// @Router /courses/{id}/modules [post]
func (h *CourseHandler) AddModule(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CreateModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	module, err := h.courseService.AddModule(c.Request.Context(), courseID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, module)
}

// AddLesson appends a lesson to a module
// @Router /modules/{id}/lessons [post]
func (h *CourseHandler) AddLesson(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CreateLessonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	lesson, err := h.courseService.AddLesson(c.Request.Context(), moduleID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lesson)
}

// AddAssignment adds an assignment to a course
// @Router /courses/{id}/assignments [post]
func (h *CourseHandler) AddAssignment(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CreateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	assignment, err := h.courseService.AddAssignment(c.Request.Context(), courseID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// AddSession schedules a live session for a course
// @Router /courses/{id}/sessions [post]
func (h *CourseHandler) AddSession(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CreateSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	session, err := h.courseService.AddSession(c.Request.Context(), courseID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// AddPrerequisite makes the course require another course
// @Summary Add course prerequisite
// @Tags courses
// @Param id path string true "Course ID"
// @Param edge body services.PrerequisiteRequest true "Prerequisite course"
// @Success 201 {object} services.DispatchResult
// @Failure 409 {object} ErrorResponse "Cycle or self reference"
// @Router /courses/{id}/prerequisites [post]
func (h *CourseHandler) AddPrerequisite(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.PrerequisiteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.courseService.AddPrerequisite(c.Request.Context(), courseID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if !result.EdgeAdded {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// ===== REPORTS =====

// GetOverview returns the enrollment rollup of a course
// @Router /courses/{id}/overview [get]
func (h *CourseHandler) GetOverview(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	overview, err := h.reportService.GetCourseOverview(c.Request.Context(), courseID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// ExportReport streams the course progress workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /courses/{id}/report.xlsx [get]
func (h *CourseHandler) ExportReport(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Exporting course report", "course_id", courseID)

	report, err := h.reportService.ExportCourseReport(c.Request.Context(), courseID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, xlsxContentType, report.Content)
}
