package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthycare/scheduling-service/internal/config"
	"github.com/healthycare/scheduling-service/internal/notify"
	redisclient "github.com/healthycare/scheduling-service/internal/redis"
)

var (
	ErrInvalidTime = errors.New("invalid appointment time")
	ErrInvalidDate = errors.New("invalid appointment date")

	ErrBookingInProgress       = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

const (
	auditActionCreate     = "CREATE"
	auditActionStatus     = "STATUS_CHANGE"
	auditModelAppointment = "Appointment"
)

// Slot is one bookable time as exposed to the booking UI.
type Slot struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type BookingInput struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Time      string
	Type      string
	Note      string
	ActorID   string
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	cfg      config.Config
	log      *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, cfg config.Config, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Service) intervalMinutes() int {
	return int(s.cfg.SlotInterval.Minutes())
}

func (s *Service) durationMinutes() int {
	return int(s.cfg.AppointmentDuration.Minutes())
}

// AvailableSlots computes a doctor's open slots for a calendar date: resolve
// the working day, generate the candidate grid, subtract everything blocked
// by PENDING or SCHEDULED appointments. A doctor with no working-day record
// for that weekday yields an empty list, not an error.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	day, err := s.repo.FindWorkingDay(ctx, doctorID, WeekdayName(date.Weekday()))
	if err != nil {
		if errors.Is(err, ErrWorkingDayNotFound) {
			return []Slot{}, nil
		}
		return nil, fmt.Errorf("resolve working day: %w", err)
	}

	startMin, err := ParseClock(day.StartTime)
	if err != nil {
		s.log.Warn("malformed working-day start time, treating day as closed",
			zap.String("doctor_id", doctorID.String()),
			zap.String("start_time", day.StartTime))
		return []Slot{}, nil
	}
	closeMin, err := ParseClock(day.CloseTime)
	if err != nil {
		s.log.Warn("malformed working-day close time, treating day as closed",
			zap.String("doctor_id", doctorID.String()),
			zap.String("close_time", day.CloseTime))
		return []Slot{}, nil
	}

	candidates := GenerateSlots(startMin/60, closeMin/60, s.intervalMinutes())

	appts, err := s.repo.ListBlockingAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list blocking appointments: %w", err)
	}

	booked := make([]string, 0, len(appts))
	for _, a := range appts {
		booked = append(booked, a.Time)
	}

	available := FilterConflicts(candidates, booked, s.durationMinutes())

	slots := make([]Slot, 0, len(available))
	for _, v := range available {
		slots = append(slots, Slot{Label: v, Value: v})
	}
	return slots, nil
}

// Book creates a PENDING appointment if the requested slot is still free.
// The availability list a client saw may be stale by the time it submits, so
// the conflict set is re-derived inside a per doctor+date lock, and the
// partial unique index backs even that up: an insert losing the race comes
// back as the same ErrSlotTaken.
func (s *Service) Book(ctx context.Context, in BookingInput) (*Appointment, error) {
	startMin, err := ParseClock(in.Time)
	if err != nil {
		return nil, ErrInvalidTime
	}
	if in.Date.IsZero() {
		return nil, ErrInvalidDate
	}
	slotTime := FormatClock(startMin)

	if _, err := s.repo.GetPatientByID(ctx, in.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	day, err := s.repo.FindWorkingDay(ctx, in.DoctorID, WeekdayName(in.Date.Weekday()))
	if err != nil {
		if errors.Is(err, ErrWorkingDayNotFound) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("resolve working day: %w", err)
	}
	if !s.withinWorkingHours(day, slotTime) {
		return nil, ErrSlotTaken
	}

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, in.DoctorID, in.Date, func(lockCtx context.Context) error {
		// Inside the critical section re-derive the conflict set for the
		// proposed time against everything still blocking.
		existing, err := s.repo.ListBlockingAppointments(lockCtx, in.DoctorID, in.Date)
		if err != nil {
			return fmt.Errorf("list blocking appointments: %w", err)
		}

		booked := make([]string, 0, len(existing))
		for _, a := range existing {
			booked = append(booked, a.Time)
		}
		if HasConflict(slotTime, booked, s.durationMinutes()) {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			DoctorID:  in.DoctorID,
			PatientID: in.PatientID,
			Date:      DateOnly(in.Date),
			Time:      slotTime,
			Type:      in.Type,
			Note:      in.Note,
		})
		if err != nil {
			return err
		}

		created = appt
		s.audit(lockCtx, in.ActorID, auditActionCreate, appt.ID,
			fmt.Sprintf("booked %s %s", appt.Date.Format("2006-01-02"), appt.Time))

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.publishEvent(ctx, notify.EventAppointmentCreated, created.ID, "")

	return created, nil
}

// withinWorkingHours accepts only times on the generated grid for the day.
func (s *Service) withinWorkingHours(day *WorkingDay, slotTime string) bool {
	startMin, err := ParseClock(day.StartTime)
	if err != nil {
		return false
	}
	closeMin, err := ParseClock(day.CloseTime)
	if err != nil {
		return false
	}

	for _, slot := range GenerateSlots(startMin/60, closeMin/60, s.intervalMinutes()) {
		if slot == slotTime {
			return true
		}
	}
	return false
}

// UpdateStatus moves an appointment along PENDING -> SCHEDULED -> COMPLETED,
// or to CANCELLED, and fans the change out to the notification channel.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus, reason, actorID string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !appt.Status.CanTransitionTo(to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status changed between the read and the compare-and-set.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.audit(ctx, actorID, auditActionStatus, updated.ID,
		fmt.Sprintf("%s -> %s", appt.Status, updated.Status))

	if eventType, ok := statusEvent(to); ok {
		s.publishEvent(ctx, eventType, updated.ID, reason)
	}

	return updated, nil
}

func statusEvent(status AppointmentStatus) (string, bool) {
	switch status {
	case StatusScheduled:
		return notify.EventAppointmentScheduled, true
	case StatusCompleted:
		return notify.EventAppointmentCompleted, true
	case StatusCancelled:
		return notify.EventAppointmentCancelled, true
	}
	return "", false
}

// Appointment retrieves a fully hydrated appointment by ID
func (s *Service) Appointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// DayAppointments lists all of a doctor's appointments on a date, regardless
// of status.
func (s *Service) DayAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return appts, nil
}

// SendReminders publishes a reminder event for every SCHEDULED appointment
// ReminderLeadDays ahead. Intended to be called by the worker periodically.
func (s *Service) SendReminders(ctx context.Context) error {
	target := DateOnly(time.Now().AddDate(0, 0, s.cfg.ReminderLeadDays))

	details, err := s.repo.ListScheduledOn(ctx, target)
	if err != nil {
		return fmt.Errorf("list scheduled appointments: %w", err)
	}

	for _, detail := range details {
		ev := eventFromDetail(notify.EventAppointmentReminder, &detail, "")
		if err := s.notifier.Publish(ctx, ev); err != nil {
			s.log.Warn("failed to publish reminder",
				zap.String("appointment_id", detail.ID.String()),
				zap.Error(err))
		}
	}

	s.log.Info("reminder sweep complete",
		zap.String("date", target.Format("2006-01-02")),
		zap.Int("appointments", len(details)))

	return nil
}

// publishEvent is best effort: a broken broker must not fail a booking that
// already committed.
func (s *Service) publishEvent(ctx context.Context, eventType string, appointmentID uuid.UUID, reason string) {
	detail, err := s.repo.GetAppointmentDetail(ctx, appointmentID)
	if err != nil {
		s.log.Warn("failed to load appointment detail for event",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
		detail = nil
	}

	var ev notify.Event
	if detail != nil {
		ev = eventFromDetail(eventType, detail, reason)
	} else {
		ev = notify.Event{Type: eventType, AppointmentID: appointmentID, Reason: reason}
	}

	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish event",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

func eventFromDetail(eventType string, detail *AppointmentDetail, reason string) notify.Event {
	ev := notify.Event{
		Type:          eventType,
		AppointmentID: detail.ID,
		Date:          detail.Date.Format("2006-01-02"),
		Time:          detail.Time,
		Status:        string(detail.Status),
		Reason:        reason,
	}
	if detail.Doctor != nil {
		ev.DoctorName = detail.Doctor.Name
	}
	if detail.Patient != nil {
		ev.PatientName = detail.Patient.FirstName + " " + detail.Patient.LastName
		if detail.Patient.Email != nil {
			ev.PatientEmail = *detail.Patient.Email
		}
	}
	return ev
}

func (s *Service) audit(ctx context.Context, actorID, action string, recordID uuid.UUID, details string) {
	if actorID == "" {
		actorID = "system"
	}

	entry := AuditLog{
		ActorID:  actorID,
		Action:   action,
		Model:    auditModelAppointment,
		RecordID: recordID.String(),
		Details:  details,
	}

	if err := s.repo.InsertAuditLog(ctx, entry); err != nil {
		s.log.Warn("failed to insert audit log",
			zap.String("action", action),
			zap.String("record_id", recordID.String()),
			zap.Error(err))
	}
}
