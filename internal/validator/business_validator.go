package validator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/training-service/internal/models"
)

// BusinessValidator handles rules that need more than one field or a stored record
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: validate}
}

// Validate validates struct tags for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	return ToValidationErrors(bv.validate.Struct(s))
}

// ValidateModuleCreate checks the module against its course
func (bv *BusinessValidator) ValidateModuleCreate(req *ModuleCreateRequest, course *models.Course) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	if req.DurationHours > course.DurationHours {
		errors = append(errors, ValidationError{
			Field:   "duration_hours",
			Message: fmt.Sprintf("cannot exceed course duration of %d hours", course.DurationHours),
			Value:   req.DurationHours,
			Rule:    "module_duration",
		})
	}

	return errors
}

// ValidateSessionCreate checks the time window and that the course runs live sessions
func (bv *BusinessValidator) ValidateSessionCreate(req *SessionCreateRequest, course *models.Course) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	if !req.EndTime.After(req.StartTime) {
		errors = append(errors, ValidationError{
			Field:   "end_time",
			Message: "must be after start_time",
			Value:   req.EndTime,
			Rule:    "session_window",
		})
	}

	if !course.DeliveryMethod.SupportsLiveSessions() {
		errors = append(errors, ValidationError{
			Field:   "course_id",
			Message: fmt.Sprintf("live sessions are not available for %s courses", course.DeliveryMethod),
			Value:   course.DeliveryMethod,
			Rule:    "session_delivery_method",
		})
	}

	return errors
}

// ValidateAttendance checks the join/leave pair
func (bv *BusinessValidator) ValidateAttendance(req *AttendanceRecordRequest) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	if req.JoinTime != nil && req.LeaveTime != nil && req.LeaveTime.Before(*req.JoinTime) {
		errors = append(errors, ValidationError{
			Field:   "leave_time",
			Message: "must not be before join_time",
			Value:   req.LeaveTime,
			Rule:    "attendance_window",
		})
	}

	if req.LeaveTime != nil && req.JoinTime == nil {
		errors = append(errors, ValidationError{
			Field:   "join_time",
			Message: "is required when leave_time is set",
			Rule:    "attendance_window",
		})
	}

	return errors
}

// ValidateAssignmentCreate rejects due dates already in the past
func (bv *BusinessValidator) ValidateAssignmentCreate(req *AssignmentCreateRequest, now time.Time) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	if req.DueDate != nil && req.DueDate.Before(now) {
		errors = append(errors, ValidationError{
			Field:   "due_date",
			Message: "must be in the future",
			Value:   req.DueDate,
			Rule:    "future_date",
		})
	}

	return errors
}
