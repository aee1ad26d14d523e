package events

import (
	"fmt"

	"github.com/google/uuid"
)

// Event names. The slash-delimited form mirrors the frontend event
// vocabulary; handlers subscribe by exact name.
const (
	EventSessionMessage    = "therapy/session.message"
	EventSessionCreated    = "therapy/session.created"
	EventMoodUpdated       = "mood/updated"
	EventActivityCompleted = "activity/completed"
)

// Payload is a typed event payload. Validation happens once, at the bus
// boundary: a payload that fails Validate is never persisted, so handlers
// only ever see well-formed input for the fields checked here.
type Payload interface {
	EventName() string
	Validate() error
}

type SessionMessagePayload struct {
	UserID    uuid.UUID `json:"userId"`
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	Memory    Memory    `json:"memory"`
	Goals     []string  `json:"goals,omitempty"`
}

func (SessionMessagePayload) EventName() string { return EventSessionMessage }

func (p SessionMessagePayload) Validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%s: missing userId", EventSessionMessage)
	}
	if p.SessionID == "" {
		return fmt.Errorf("%s: missing sessionId", EventSessionMessage)
	}
	if p.Message == "" {
		return fmt.Errorf("%s: missing message", EventSessionMessage)
	}
	return nil
}

type SessionCreatedPayload struct {
	UserID     uuid.UUID `json:"userId"`
	SessionID  string    `json:"sessionId"`
	Notes      string    `json:"notes,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
}

func (SessionCreatedPayload) EventName() string { return EventSessionCreated }

func (p SessionCreatedPayload) Validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%s: missing userId", EventSessionCreated)
	}
	if p.SessionID == "" {
		return fmt.Errorf("%s: missing sessionId", EventSessionCreated)
	}
	return nil
}

type MoodUpdatedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	MoodID    uuid.UUID `json:"moodId,omitempty"`
	Score     *int      `json:"score"`
	Note      string    `json:"note,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

func (MoodUpdatedPayload) EventName() string { return EventMoodUpdated }

func (p MoodUpdatedPayload) Validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%s: missing userId", EventMoodUpdated)
	}
	if p.Score == nil {
		return fmt.Errorf("%s: missing score", EventMoodUpdated)
	}
	return nil
}

type ActivityCompletedPayload struct {
	UserID     uuid.UUID `json:"userId"`
	ActivityID uuid.UUID `json:"activityId"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Duration   *int      `json:"duration,omitempty"`
}

func (ActivityCompletedPayload) EventName() string { return EventActivityCompleted }

func (p ActivityCompletedPayload) Validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%s: missing userId", EventActivityCompleted)
	}
	if p.ActivityID == uuid.Nil {
		return fmt.Errorf("%s: missing activityId", EventActivityCompleted)
	}
	if p.Type == "" {
		return fmt.Errorf("%s: missing type", EventActivityCompleted)
	}
	if p.Name == "" {
		return fmt.Errorf("%s: missing name", EventActivityCompleted)
	}
	return nil
}
