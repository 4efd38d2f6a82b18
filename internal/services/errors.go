package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/training-service/internal/validator"
)

// Engine error kinds, matched with errors.Is
var (
	ErrSelfReference                 = errors.New("self reference")
	ErrCircularDependency            = errors.New("circular dependency")
	ErrInvalidTransition             = errors.New("invalid transition")
	ErrStructuralViolation           = errors.New("structural violation")
	ErrMilestoneEvaluationIncomplete = errors.New("milestone evaluation incomplete")
	ErrConcurrentAwardConflict       = errors.New("concurrent award conflict")
)

// Service errors
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrModuleNotFound      = errors.New("module not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrProgressNotFound    = errors.New("progress not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrAttendanceNotFound  = errors.New("attendance not found")
	ErrSkillNotFound       = errors.New("skill not found")
	ErrUserSkillNotFound   = errors.New("user skill not found")
	ErrAchievementNotFound = errors.New("achievement not found")

	ErrAlreadyEnrolled   = errors.New("user is already enrolled in this course")
	ErrCourseFull        = errors.New("course is full")
	ErrCourseInactive    = errors.New("course is not active")
	ErrEnrollmentClosed  = errors.New("enrollment no longer accepts progress")
	ErrDuplicateCode     = errors.New("code already exists")
	ErrDuplicateName     = errors.New("name already exists")
	ErrPositionTaken     = errors.New("order already used in parent")
	ErrTargetNotInCourse = errors.New("target does not belong to the enrollment's course")
	ErrAlreadyVerified   = errors.New("user skill is already verified")
	ErrSelfVerification  = errors.New("users cannot verify their own skills")
)

// ValidationErrors is the request validation failure type
type ValidationErrors = validator.ValidationErrors

// EngineError carries the component and operation an engine failure came from
type EngineError struct {
	Component string // e.g. "graph", "enrollment", "achievement"
	Op        string
	Kind      error
	Message   string
	Err       error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *EngineError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newEngineError(component, op string, kind error, format string, args ...interface{}) *EngineError {
	return &EngineError{
		Component: component,
		Op:        op,
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
	}
}

// PermissionError is returned when the actor may not perform the action
type PermissionError struct {
	UserID   string
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// BusinessRuleError reports a rule violation that is not a single-field validation problem
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

// NewValidationError builds a single-field ValidationErrors
func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value, Rule: "business_logic"}}
}
