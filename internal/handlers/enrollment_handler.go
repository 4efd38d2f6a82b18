package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	service services.EnrollmentService
}

func NewEnrollmentHandler(service services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Enroll enrolls the caller in a course
// @Summary Enroll in course
// @Tags enrollments
// @Param id path string true "Course ID"
// @Success 201 {object} models.Enrollment
// @Failure 409 {object} ErrorResponse "Already enrolled, course full or inactive"
// @Failure 422 {object} ErrorResponse "Missing prerequisites"
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), courseID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// GetEnrollment returns one enrollment with its progress rows
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	enrollment, err := h.service.GetByID(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// ListEnrollments lists enrollments; participants only see their own
// @Param course_id query string false "Course filter"
// @Param user_id query string false "User filter (staff only)"
// @Param status query string false "Status filter"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Router /enrollments [get]
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	params, ok := h.parseListParams(c)
	if !ok {
		return
	}

	response, err := h.service.List(c.Request.Context(), params, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Transition applies approve, start, withdraw or fail
// @Param id path string true "Enrollment ID"
// @Param transition body services.TransitionRequest true "Action"
// @Success 200 {object} services.DispatchResult
// @Failure 409 {object} ErrorResponse "Action not allowed from the current status"
// @Router /enrollments/{id}/transitions [post]
func (h *EnrollmentHandler) Transition(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.service.Transition(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *EnrollmentHandler) parseListParams(c *gin.Context) (models.ListEnrollmentsParams, bool) {
	var params models.ListEnrollmentsParams

	if raw := c.Query("course_id"); raw != "" {
		courseID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid course_id", Details: err.Error()})
			return params, false
		}
		params.CourseID = &courseID
	}
	if userID := c.Query("user_id"); userID != "" {
		params.UserID = &userID
	}
	if raw := c.Query("status"); raw != "" {
		status := models.EnrollmentStatus(raw)
		params.Status = &status
	}

	// Malformed numbers fall back to defaults, out-of-range ones are rejected by the service
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("size", "20")); err == nil {
		params.Size = size
	}

	return params, true
}
