package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthycare/scheduling-service/internal/config"
	"github.com/healthycare/scheduling-service/internal/notify"
	redisclient "github.com/healthycare/scheduling-service/internal/redis"
)

// ---------- fakes ----------

type fakeRepo struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]*Doctor
	patients     map[uuid.UUID]*Patient
	workingDays  []WorkingDay
	appointments map[uuid.UUID]*Appointment
	audits       []AuditLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors:      make(map[uuid.UUID]*Doctor),
		patients:     make(map[uuid.UUID]*Patient),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (r *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.doctors[id]; ok {
		return d, nil
	}
	return nil, ErrDoctorNotFound
}

func (r *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}

func (r *fakeRepo) FindWorkingDay(_ context.Context, doctorID uuid.UUID, day string) (*WorkingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.workingDays {
		wd := &r.workingDays[i]
		if wd.DoctorID == doctorID && wd.Day == day {
			return wd, nil
		}
	}
	return nil, ErrWorkingDayNotFound
}

func (r *fakeRepo) ListBlockingAppointments(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(DateOnly(date)) && a.Status.Blocking() {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *fakeRepo) ListAppointmentsByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(DateOnly(date)) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *fakeRepo) CreateAppointment(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirror the partial unique index on (doctor_id, appointment_date, time).
	for _, existing := range r.appointments {
		if existing.DoctorID == appt.DoctorID &&
			existing.Date.Equal(appt.Date) &&
			existing.Time == appt.Time &&
			existing.Status.Blocking() {
			return nil, ErrSlotTaken
		}
	}

	appt.ID = uuid.New()
	appt.Status = StatusPending
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	r.appointments[appt.ID] = &appt

	copied := appt
	return &copied, nil
}

func (r *fakeRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus, reason string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.Reason = reason
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appointments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *fakeRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return &AppointmentDetail{
		Appointment: *appt,
		Doctor:      r.doctors[appt.DoctorID],
		Patient:     r.patients[appt.PatientID],
	}, nil
}

func (r *fakeRepo) ListScheduledOn(_ context.Context, date time.Time) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []AppointmentDetail
	for _, a := range r.appointments {
		if a.Status == StatusScheduled && a.Date.Equal(DateOnly(date)) {
			result = append(result, AppointmentDetail{
				Appointment: *a,
				Doctor:      r.doctors[a.DoctorID],
				Patient:     r.patients[a.PatientID],
			})
		}
	}
	return result, nil
}

func (r *fakeRepo) InsertAuditLog(_ context.Context, entry AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, entry)
	return nil
}

type passthroughLocker struct{}

func (passthroughLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type contendedLocker struct{}

func (contendedLocker) WithBookingLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *captureNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// ---------- helpers ----------

func testConfig() config.Config {
	return config.Config{
		SlotInterval:        30 * time.Minute,
		AppointmentDuration: time.Hour,
		ReminderLeadDays:    2,
	}
}

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo, n notify.Notifier) *Service {
	return NewService(repo, passthroughLocker{}, n, testConfig(), zap.NewNop())
}

func seedDoctorWithHours(repo *fakeRepo) uuid.UUID {
	id := uuid.New()
	repo.doctors[id] = &Doctor{ID: id, Name: "Dr. Reed"}
	repo.workingDays = append(repo.workingDays, WorkingDay{
		DoctorID:  id,
		Day:       "monday",
		StartTime: "09:00",
		CloseTime: "17:00",
	})
	return id
}

func seedPatient(repo *fakeRepo) uuid.UUID {
	id := uuid.New()
	email := "pat@example.com"
	repo.patients[id] = &Patient{ID: id, FirstName: "Pat", LastName: "Jones", Email: &email}
	return id
}

func slotValues(slots []Slot) []string {
	values := make([]string, 0, len(slots))
	for _, s := range slots {
		values = append(values, s.Value)
	}
	return values
}

// ---------- availability ----------

func TestAvailableSlots(t *testing.T) {
	t.Run("closed day yields empty list", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		svc := newTestService(repo, notify.Noop{})

		sunday := monday.AddDate(0, 0, -1)
		slots, err := svc.AvailableSlots(context.Background(), doctorID, sunday)

		assert.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("open day returns full grid", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		svc := newTestService(repo, notify.Noop{})

		slots, err := svc.AvailableSlots(context.Background(), doctorID, monday)

		require.NoError(t, err)
		assert.Len(t, slots, 17)
		assert.Contains(t, slotValues(slots), "14:00")
		assert.Equal(t, "09:00", slots[0].Value)
		assert.Equal(t, "17:00", slots[16].Value)
	})

	t.Run("cancelled appointments do not block", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)

		id := uuid.New()
		repo.appointments[id] = &Appointment{
			ID: id, DoctorID: doctorID, PatientID: patientID,
			Date: monday, Time: "10:00", Status: StatusCancelled,
		}

		svc := newTestService(repo, notify.Noop{})
		slots, err := svc.AvailableSlots(context.Background(), doctorID, monday)

		require.NoError(t, err)
		assert.Contains(t, slotValues(slots), "10:00")
		assert.Len(t, slots, 17)
	})

	t.Run("idempotent with no intervening writes", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		svc := newTestService(repo, notify.Noop{})

		first, err := svc.AvailableSlots(context.Background(), doctorID, monday)
		require.NoError(t, err)
		second, err := svc.AvailableSlots(context.Background(), doctorID, monday)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

// ---------- booking ----------

func TestBook(t *testing.T) {
	t.Run("end to end booking scenario", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		notifier := &captureNotifier{}
		svc := newTestService(repo, notifier)
		ctx := context.Background()

		slots, err := svc.AvailableSlots(ctx, doctorID, monday)
		require.NoError(t, err)
		require.Len(t, slots, 17)
		require.Contains(t, slotValues(slots), "14:00")

		appt, err := svc.Book(ctx, BookingInput{
			DoctorID:  doctorID,
			PatientID: patientID,
			Date:      monday,
			Time:      "14:00",
			Type:      "General Check Up",
			ActorID:   patientID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, appt.Status)
		assert.Equal(t, "14:00", appt.Time)

		after, err := svc.AvailableSlots(ctx, doctorID, monday)
		require.NoError(t, err)
		values := slotValues(after)
		assert.NotContains(t, values, "13:30")
		assert.NotContains(t, values, "14:00")
		assert.NotContains(t, values, "14:30")
		assert.Len(t, after, 14)

		_, err = svc.Book(ctx, BookingInput{
			DoctorID:  doctorID,
			PatientID: patientID,
			Date:      monday,
			Time:      "14:00",
		})
		assert.ErrorIs(t, err, ErrSlotTaken)

		events := notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, notify.EventAppointmentCreated, events[0].Type)
		assert.Equal(t, appt.ID, events[0].AppointmentID)
		assert.Equal(t, "pat@example.com", events[0].PatientEmail)

		require.Len(t, repo.audits, 1)
		assert.Equal(t, "CREATE", repo.audits[0].Action)
		assert.Equal(t, patientID.String(), repo.audits[0].ActorID)
	})

	t.Run("adjacent half-hour neighbor is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		svc := newTestService(repo, notify.Noop{})
		ctx := context.Background()

		_, err := svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "10:00"})
		require.NoError(t, err)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "10:30"})
		assert.ErrorIs(t, err, ErrSlotTaken)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "09:30"})
		assert.ErrorIs(t, err, ErrSlotTaken)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "11:00"})
		assert.NoError(t, err)
	})

	t.Run("cancelling frees the slot for rebooking", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		svc := newTestService(repo, notify.Noop{})
		ctx := context.Background()

		appt, err := svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "10:00"})
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, appt.ID, StatusCancelled, "patient request", "")
		require.NoError(t, err)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "10:00"})
		assert.NoError(t, err)
	})

	t.Run("validation failures", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		svc := newTestService(repo, notify.Noop{})
		ctx := context.Background()

		_, err := svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "25:00"})
		assert.ErrorIs(t, err, ErrInvalidTime)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Time: "10:00"})
		assert.ErrorIs(t, err, ErrInvalidDate)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: uuid.New(), Date: monday, Time: "10:00"})
		assert.ErrorIs(t, err, ErrPatientNotFound)

		_, err = svc.Book(ctx, BookingInput{DoctorID: uuid.New(), PatientID: patientID, Date: monday, Time: "10:00"})
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("off day and out-of-hours are conflicts", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		svc := newTestService(repo, notify.Noop{})
		ctx := context.Background()

		sunday := monday.AddDate(0, 0, -1)
		_, err := svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: sunday, Time: "10:00"})
		assert.ErrorIs(t, err, ErrSlotTaken)

		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "07:00"})
		assert.ErrorIs(t, err, ErrSlotTaken)

		// 17:30 is past the close-hour boundary even though hour 17 is open.
		_, err = svc.Book(ctx, BookingInput{DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "17:30"})
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("contended lock surfaces as booking in progress", func(t *testing.T) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		svc := NewService(repo, contendedLocker{}, notify.Noop{}, testConfig(), zap.NewNop())

		_, err := svc.Book(context.Background(), BookingInput{
			DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "10:00",
		})
		assert.ErrorIs(t, err, ErrBookingInProgress)
	})
}

// ---------- status transitions ----------

func TestUpdateStatus(t *testing.T) {
	setup := func(t *testing.T) (*Service, *fakeRepo, *captureNotifier, uuid.UUID) {
		repo := newFakeRepo()
		doctorID := seedDoctorWithHours(repo)
		patientID := seedPatient(repo)
		notifier := &captureNotifier{}
		svc := newTestService(repo, notifier)

		appt, err := svc.Book(context.Background(), BookingInput{
			DoctorID: doctorID, PatientID: patientID, Date: monday, Time: "10:00",
		})
		require.NoError(t, err)
		return svc, repo, notifier, appt.ID
	}

	t.Run("pending to scheduled to completed", func(t *testing.T) {
		svc, _, notifier, id := setup(t)
		ctx := context.Background()

		updated, err := svc.UpdateStatus(ctx, id, StatusScheduled, "", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, StatusScheduled, updated.Status)

		updated, err = svc.UpdateStatus(ctx, id, StatusCompleted, "", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, updated.Status)

		types := make([]string, 0)
		for _, ev := range notifier.Events() {
			types = append(types, ev.Type)
		}
		assert.Equal(t, []string{
			notify.EventAppointmentCreated,
			notify.EventAppointmentScheduled,
			notify.EventAppointmentCompleted,
		}, types)
	})

	t.Run("cancellation carries the reason", func(t *testing.T) {
		svc, _, notifier, id := setup(t)

		updated, err := svc.UpdateStatus(context.Background(), id, StatusCancelled, "doctor unavailable", "admin-1")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, updated.Status)
		assert.Equal(t, "doctor unavailable", updated.Reason)

		events := notifier.Events()
		last := events[len(events)-1]
		assert.Equal(t, notify.EventAppointmentCancelled, last.Type)
		assert.Equal(t, "doctor unavailable", last.Reason)
	})

	t.Run("illegal transitions are rejected", func(t *testing.T) {
		svc, _, _, id := setup(t)
		ctx := context.Background()

		_, err := svc.UpdateStatus(ctx, id, StatusCompleted, "", "")
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)

		_, err = svc.UpdateStatus(ctx, id, StatusCancelled, "", "")
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, id, StatusScheduled, "", "")
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		svc, _, _, _ := setup(t)

		_, err := svc.UpdateStatus(context.Background(), uuid.New(), StatusScheduled, "", "")
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

// ---------- reminders ----------

func TestSendReminders(t *testing.T) {
	repo := newFakeRepo()
	doctorID := seedDoctorWithHours(repo)
	patientID := seedPatient(repo)
	notifier := &captureNotifier{}
	svc := newTestService(repo, notifier)

	target := DateOnly(time.Now().AddDate(0, 0, 2))
	id := uuid.New()
	repo.appointments[id] = &Appointment{
		ID: id, DoctorID: doctorID, PatientID: patientID,
		Date: target, Time: "10:00", Status: StatusScheduled,
	}
	// Pending on the same day must not get a reminder.
	other := uuid.New()
	repo.appointments[other] = &Appointment{
		ID: other, DoctorID: doctorID, PatientID: patientID,
		Date: target, Time: "11:00", Status: StatusPending,
	}

	err := svc.SendReminders(context.Background())
	require.NoError(t, err)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventAppointmentReminder, events[0].Type)
	assert.Equal(t, id, events[0].AppointmentID)
	assert.Equal(t, "pat@example.com", events[0].PatientEmail)
	assert.Equal(t, "Dr. Reed", events[0].DoctorName)
}
