package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Service SchedulingService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	AMQP    *amqp091.Connection
	Env     string
	Version string
	Logger  *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.AMQP, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Service)

	r.Get("/doctors/{id}/slots", h.GetAvailableSlots)
	r.Get("/doctors/{id}/appointments", h.ListDayAppointments)
	r.Post("/appointments", h.CreateAppointment)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Post("/appointments/{id}/status", h.UpdateAppointmentStatus)

	return r
}
