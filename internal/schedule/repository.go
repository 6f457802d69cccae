package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrWorkingDayNotFound  = errors.New("working day not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the authoritative conflict error: raised by the
	// pre-insert re-check and by the partial unique index on
	// (doctor_id, appointment_date, time).
	ErrSlotTaken = errors.New("doctor not available at selected time, choose another slot")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// FindWorkingDay resolves a doctor's hours for a lowercase weekday name,
	// matching the stored value case-insensitively. First match wins.
	FindWorkingDay(ctx context.Context, doctorID uuid.UUID, day string) (*WorkingDay, error)

	// ListBlockingAppointments returns the doctor's appointments on the date
	// whose status still occupies a slot (PENDING or SCHEDULED).
	ListBlockingAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	ListAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, reason string) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// For the reminder worker
	ListScheduledOn(ctx context.Context, date time.Time) ([]AppointmentDetail, error)

	InsertAuditLog(ctx context.Context, entry AuditLog) error
}
