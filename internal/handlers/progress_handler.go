package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
)

// ProgressHandler serves the completion writes that feed the dispatcher
type ProgressHandler struct {
	BaseHandler
	progressService   services.ProgressService
	attendanceService services.AttendanceService
}

func NewProgressHandler(progressService services.ProgressService, attendanceService services.AttendanceService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:       NewBaseHandler(logger),
		progressService:   progressService,
		attendanceService: attendanceService,
	}
}

// RecordProgress upserts progress on a lesson or assignment
// @Summary Record progress
// @Tags progress
// @Param id path string true "Enrollment ID"
// @Param progress body services.ProgressUpdateRequest true "Exactly one of lesson_id and assignment_id"
// @Success 200 {object} services.ProgressResponse
// @Failure 400 {object} ErrorResponse "Validation or structural violation"
// @Failure 409 {object} ErrorResponse "Enrollment closed"
// @Failure 422 {object} ErrorResponse "Target outside the course"
// @Router /enrollments/{id}/progress [put]
func (h *ProgressHandler) RecordProgress(c *gin.Context) {
	enrollmentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ProgressUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Recording progress", "enrollment_id", enrollmentID, "status", req.Status)

	response, err := h.progressService.Record(c.Request.Context(), enrollmentID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListProgress returns all progress rows of an enrollment
// @Router /enrollments/{id}/progress [get]
func (h *ProgressHandler) ListProgress(c *gin.Context) {
	enrollmentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	progress, err := h.progressService.ListByEnrollment(c.Request.Context(), enrollmentID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// RecordAttendance upserts the attendance of a user at a live session
// @Param id path string true "Session ID"
// @Param attendance body services.AttendanceRecordRequest true "Attendance"
// @Success 200 {object} services.AttendanceResponse
// @Router /sessions/{id}/attendance [put]
func (h *ProgressHandler) RecordAttendance(c *gin.Context) {
	sessionID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.AttendanceRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	response, err := h.attendanceService.Record(c.Request.Context(), sessionID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
