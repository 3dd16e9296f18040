package port

import (
	"context"
)

// Event subjects
const (
	SubjectCycleCompleted = "sremon.cycle.completed"
	SubjectStatusChanged  = "sremon.status.changed"
)

// StatusChangedEvent публикуется, когда общий статус отличается от предыдущего цикла
type StatusChangedEvent struct {
	CycleID        string `json:"cycle_id"`
	PreviousStatus string `json:"previous_status"`
	CurrentStatus  string `json:"current_status"`
	Timestamp      string `json:"timestamp"`
}

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
