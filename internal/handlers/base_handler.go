package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/training-service/internal/models"
	"github.com/SAP-F-2025/training-service/internal/repositories"
	"github.com/SAP-F-2025/training-service/internal/services"
	"github.com/SAP-F-2025/training-service/internal/utils"
	"github.com/SAP-F-2025/training-service/internal/validator"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details string      `json:"details,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.FromGinContext(c, h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.log(c).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.log(c).Error(msg, append(args, "error", err)...)
}

// actor reads the identity set by the auth middleware; it writes 401 and returns false when absent
func (h *BaseHandler) actor(c *gin.Context) (models.Actor, bool) {
	actor, err := ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return models.Actor{}, false
	}
	return actor, true
}

func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Details: err.Error(),
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

var notFoundErrors = []error{
	services.ErrCourseNotFound,
	services.ErrModuleNotFound,
	services.ErrEnrollmentNotFound,
	services.ErrProgressNotFound,
	services.ErrSessionNotFound,
	services.ErrAttendanceNotFound,
	services.ErrSkillNotFound,
	services.ErrUserSkillNotFound,
	services.ErrAchievementNotFound,
}

var conflictErrors = []error{
	services.ErrInvalidTransition,
	services.ErrCircularDependency,
	services.ErrSelfReference,
	services.ErrAlreadyEnrolled,
	services.ErrCourseFull,
	services.ErrCourseInactive,
	services.ErrEnrollmentClosed,
	services.ErrDuplicateCode,
	services.ErrDuplicateName,
	services.ErrPositionTaken,
	services.ErrAlreadyVerified,
	services.ErrSelfVerification,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleServiceError maps service and engine errors onto HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	var permissionErr *services.PermissionError
	var ruleErr *services.BusinessRuleError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Errors:  validationErrs,
		})
	case errors.Is(err, services.ErrStructuralViolation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Structural violation",
			Details: err.Error(),
		})
	case matchesAny(err, notFoundErrors), repositories.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
			Details: err.Error(),
		})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Permission denied",
			Details: permissionErr.Reason,
		})
	case matchesAny(err, conflictErrors):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Request conflicts with current state",
			Details: err.Error(),
		})
	case errors.As(err, &ruleErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: ruleErr.Message,
			Details: ruleErr.Rule,
			Errors:  ruleErr.Context,
		})
	case errors.Is(err, services.ErrTargetNotInCourse):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Target does not belong to the course",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unhandled service error", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
