package domain

import "time"

// EventType represents the type of an account event
type EventType string

const (
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// AccountEvent represents an account-service event consumed over RabbitMQ.
// User and plan management live outside this service; these events keep
// the locally stored contact details in sync.
type AccountEvent struct {
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
