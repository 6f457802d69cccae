package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/healthycare/scheduling-service/internal/schedule"
)

// SchedulingService is what the handlers need from the domain layer.
type SchedulingService interface {
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Slot, error)
	Book(ctx context.Context, in schedule.BookingInput) (*schedule.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to schedule.AppointmentStatus, reason, actorID string) (*schedule.Appointment, error)
	Appointment(ctx context.Context, id uuid.UUID) (*schedule.AppointmentDetail, error)
	DayAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Appointment, error)
}

type Handler struct {
	svc      SchedulingService
	validate *validator.Validate
}

func NewHandler(svc SchedulingService) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "doctor id must be a valid UUID")
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeData(w, http.StatusOK, slots)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking request: "+err.Error())
		return
	}

	doctorID, _ := uuid.Parse(req.DoctorID)
	patientID, _ := uuid.Parse(req.PatientID)
	date, _ := time.Parse("2006-01-02", req.AppointmentDate)

	appt, err := h.svc.Book(r.Context(), schedule.BookingInput{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		Time:      req.Time,
		Type:      req.Type,
		Note:      req.Note,
		ActorID:   r.Header.Get("X-Actor-ID"),
	})
	if err != nil {
		handleBookingError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "appointment id must be a valid UUID")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status request: "+err.Error())
		return
	}

	status, ok := schedule.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	appt, err := h.svc.UpdateStatus(r.Context(), id, status, req.Reason, r.Header.Get("X-Actor-ID"))
	if err != nil {
		handleStatusError(w, err)
		return
	}

	writeData(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "appointment id must be a valid UUID")
		return
	}

	detail, err := h.svc.Appointment(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeData(w, http.StatusOK, toAppointmentResponse(&detail.Appointment))
}

func (h *Handler) ListDayAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "doctor id must be a valid UUID")
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	appts, err := h.svc.DayAppointments(r.Context(), doctorID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, toAppointmentResponse(&appts[i]))
	}
	writeData(w, http.StatusOK, resp)
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidTime),
		errors.Is(err, schedule.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound),
		errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrSlotTaken):
		writeError(w, http.StatusConflict, schedule.ErrSlotTaken.Error())
	case errors.Is(err, schedule.ErrBookingInProgress):
		writeError(w, http.StatusConflict, "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func handleStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
