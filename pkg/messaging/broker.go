package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Booking lifecycle channels.
const (
	ChannelBookingCreated     = "booking.created"
	ChannelBookingCancelled   = "booking.cancelled"
	ChannelBookingRescheduled = "booking.rescheduled"
	ChannelBookingStatus      = "booking.status_changed"
)

// Event is the envelope published for every booking lifecycle change.
type Event struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	AppointmentID int64       `json:"appointment_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Payload       interface{} `json:"payload,omitempty"`
}

func NewEvent(eventType string, appointmentID int64, payload interface{}) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		AppointmentID: appointmentID,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
}
