package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthycare/scheduling-service/internal/schedule"
)

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id" validate:"required,uuid"`
	PatientID       string `json:"patient_id" validate:"required,uuid"`
	AppointmentDate string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required"`
	Type            string `json:"type" validate:"omitempty,max=64"`
	Note            string `json:"note" validate:"omitempty,max=512"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=SCHEDULED COMPLETED CANCELLED"`
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	AppointmentDate string    `json:"appointment_date"`
	Time            string    `json:"time"`
	Type            string    `json:"type,omitempty"`
	Note            string    `json:"note,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		AppointmentDate: a.Date.Format("2006-01-02"),
		Time:            a.Time,
		Type:            a.Type,
		Note:            a.Note,
		Reason:          a.Reason,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
	}
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
