package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeNotification = "notification.toast"
	EventTypeSignedIn     = "session.signed_in"
	EventTypeSignedOut    = "session.signed_out"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// NotificationEvent is a transient toast shown to the operator.
type NotificationEvent struct {
	BaseEvent
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Screen  string `json:"screen,omitempty"`
}

func NewNotificationEvent(level Level, title, message, screen string) *NotificationEvent {
	return &NotificationEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNotification,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"level":   string(level),
				"title":   title,
				"message": message,
				"screen":  screen,
			},
		},
		Level:   level,
		Title:   title,
		Message: message,
		Screen:  screen,
	}
}

type SessionEvent struct {
	BaseEvent
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

func NewSignedInEvent(userID int64, email string) *SessionEvent {
	return newSessionEvent(EventTypeSignedIn, userID, email, "")
}

// NewSignedOutEvent carries the reason: "logout" or "unauthorized".
func NewSignedOutEvent(userID int64, email, reason string) *SessionEvent {
	return newSessionEvent(EventTypeSignedOut, userID, email, reason)
}

func newSessionEvent(eventType string, userID int64, email, reason string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"email":   email,
				"reason":  reason,
			},
		},
		UserID: userID,
		Email:  email,
		Reason: reason,
	}
}
