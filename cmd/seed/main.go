package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthycare/scheduling-service/internal/db"
	"github.com/healthycare/scheduling-service/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := applyMigrations(context.Background(), pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctorIDs, patientIDs, 300); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := os.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, string(sql))
	return err
}

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	workdays := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialization, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, email)
		if err != nil {
			return nil, err
		}

		startHour := gofakeit.Number(8, 10)
		closeHour := gofakeit.Number(16, 18)
		for _, day := range workdays {
			_, err := tx.Exec(ctx, `
				INSERT INTO working_days (doctor_id, day, start_time, close_time)
				VALUES ($1, $2, $3, $4)
			`, id, day, schedule.FormatClock(startHour*60), schedule.FormatClock(closeHour*60))
			if err != nil {
				return nil, err
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

var appointmentTypes = []string{
	"General Consultation",
	"General Check Up",
	"Antenatal",
	"Maternity",
	"Lab Test",
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctors, patients []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for inserted < count {
		doctor := doctors[gofakeit.Number(0, len(doctors)-1)]
		patient := patients[gofakeit.Number(0, len(patients)-1)]

		// Weekdays only so the slot lands inside seeded working days.
		date := schedule.DateOnly(time.Now().AddDate(0, 0, gofakeit.Number(1, 14)))
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		hour := gofakeit.Number(9, 15)
		minute := 30 * gofakeit.Number(0, 1)
		slot := schedule.FormatClock(hour*60 + minute)
		status := schedule.StatusPending
		if gofakeit.Bool() {
			status = schedule.StatusScheduled
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, doctor_id, patient_id, appointment_date, "time", type, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT DO NOTHING
		`, uuid.New(), doctor, patient, date, slot,
			appointmentTypes[gofakeit.Number(0, len(appointmentTypes)-1)], status)
		if err != nil {
			return err
		}

		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("appointments seeded")
	return nil
}
