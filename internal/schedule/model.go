package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Blocking reports whether an appointment in this status occupies its slot.
// Completed and cancelled appointments keep their rows but free the time.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusPending || s == StatusScheduled
}

// CanTransitionTo enforces PENDING -> SCHEDULED -> COMPLETED, with CANCELLED
// reachable from PENDING or SCHEDULED.
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusScheduled || to == StatusCancelled
	case StatusScheduled:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

func ParseStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(s) {
	case StatusPending, StatusScheduled, StatusCompleted, StatusCancelled:
		return AppointmentStatus(s), true
	}
	return "", false
}

type Doctor struct {
	ID             uuid.UUID
	Name           string
	Specialization *string
	Email          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingDay is one doctor's configured hours for a single weekday.
// Day holds a lowercase English weekday name, times are "HH:MM".
type WorkingDay struct {
	ID        int64
	DoctorID  uuid.UUID
	Day       string
	StartTime string
	CloseTime string
}

type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time // calendar date, time-of-day truncated
	Time      string    // "HH:MM" start time
	Type      string
	Note      string
	Reason    string
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AppointmentDetail struct {
	Appointment
	Doctor  *Doctor
	Patient *Patient
}

type AuditLog struct {
	ID        int64
	ActorID   string
	Action    string
	Model     string
	RecordID  string
	Details   string
	CreatedAt time.Time
}

var weekdayNames = [...]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// WeekdayName maps a time.Weekday to the lowercase name stored in
// working_days. The table is fixed so no locale-dependent formatting is
// involved.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// DateOnly truncates t to midnight UTC so appointment dates compare by
// calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
