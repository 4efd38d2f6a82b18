package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "training-service"
	EventVersion = "1.0"
)

type EventType string

const (
	EnrollmentCreated       EventType = "enrollment.created"
	EnrollmentStatusChanged EventType = "enrollment.status_changed"
	EnrollmentCompleted     EventType = "enrollment.completed"
	CertificateIssued       EventType = "certificate.issued"
	ProgressRecorded        EventType = "progress.recorded"
	AttendanceRecorded      EventType = "attendance.recorded"
	SkillVerified           EventType = "skill.verified"
	PrerequisiteAdded       EventType = "prerequisite.added"
	AchievementAwarded      EventType = "achievement.awarded"
)

// Event is the envelope of every outbound domain event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

func NewEvent(eventType EventType, userID string, data map[string]interface{}) *Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Data:      data,
	}
}

// EventPublisher delivers events outside the service. Callers publish only after
// the originating transaction has committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...*Event) error
	Close() error
}
