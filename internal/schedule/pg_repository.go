package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.Email,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanWorkingDay(row pgx.Row) (*WorkingDay, error) {
	var w WorkingDay

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.Day,
		&w.StartTime,
		&w.CloseTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingDayNotFound
		}
		return nil, err
	}

	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.Time,
		&a.Type,
		&a.Note,
		&a.Reason,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `id, doctor_id, patient_id, appointment_date, "time", type, note, reason, status, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, email, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) FindWorkingDay(ctx context.Context, doctorID uuid.UUID, day string) (*WorkingDay, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, day, start_time, close_time
		FROM working_days
		WHERE doctor_id = $1 AND LOWER(day) = LOWER($2)
		ORDER BY id
		LIMIT 1
	`, doctorID, day)
	return scanWorkingDay(row)
}

func (r *PgRepository) ListBlockingAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status NOT IN ($3, $4)
		ORDER BY "time"
	`, doctorID, DateOnly(date), StatusCancelled, StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		ORDER BY "time"
	`, doctorID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, appointment_date, "time", type, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.DoctorID, appt.PatientID, DateOnly(appt.Date), appt.Time, appt.Type, appt.Note, StatusPending)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, reason string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    reason = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, to, reason, from)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor for appointment %s: %w", id, err)
	}

	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient for appointment %s: %w", id, err)
	}

	return &AppointmentDetail{
		Appointment: *appt,
		Doctor:      doctor,
		Patient:     patient,
	}, nil
}

func (r *PgRepository) ListScheduledOn(ctx context.Context, date time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.doctor_id, a.patient_id, a.appointment_date, a."time", a.type, a.note, a.reason, a.status, a.created_at, a.updated_at,
		       d.id, d.name, d.specialization, d.email, d.created_at, d.updated_at,
		       p.id, p.first_name, p.last_name, p.email, p.created_at, p.updated_at
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN patients p ON p.id = a.patient_id
		WHERE a.appointment_date = $1
		  AND a.status = $2
		ORDER BY a."time"
	`, DateOnly(date), StatusScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var detail AppointmentDetail
		var d Doctor
		var p Patient

		err := rows.Scan(
			&detail.ID,
			&detail.DoctorID,
			&detail.PatientID,
			&detail.Date,
			&detail.Time,
			&detail.Type,
			&detail.Note,
			&detail.Reason,
			&detail.Status,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&d.ID,
			&d.Name,
			&d.Specialization,
			&d.Email,
			&d.CreatedAt,
			&d.UpdatedAt,
			&p.ID,
			&p.FirstName,
			&p.LastName,
			&p.Email,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		detail.Doctor = &d
		detail.Patient = &p
		result = append(result, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertAuditLog(ctx context.Context, entry AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, model, record_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, entry.ActorID, entry.Action, entry.Model, entry.RecordID, entry.Details)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}
