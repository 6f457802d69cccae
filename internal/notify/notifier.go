package notify

import (
	"context"

	"github.com/google/uuid"
)

const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentScheduled = "appointment.scheduled"
	EventAppointmentCompleted = "appointment.completed"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentReminder  = "appointment.reminder"
)

// Event is the payload handed to the downstream notification consumers
// (mailer, push). Delivery is their concern; this service only publishes.
type Event struct {
	Type          string    `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorName    string    `json:"doctor_name,omitempty"`
	PatientName   string    `json:"patient_name,omitempty"`
	PatientEmail  string    `json:"patient_email,omitempty"`
	Date          string    `json:"date,omitempty"`
	Time          string    `json:"time,omitempty"`
	Status        string    `json:"status,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop is used in tests and when no AMQP broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
