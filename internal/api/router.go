package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic-booking/internal/clinic"
)

type RouterConfig struct {
	Booking   *clinic.BookingService
	Lifecycle *clinic.LifecycleService
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Doctor lifecycle
	r.Post("/doctors", createDoctorHandler(cfg.Lifecycle))
	r.Get("/doctors", listDoctorsHandler(cfg.Lifecycle))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Lifecycle))
	r.Patch("/doctors/{id}", updateDoctorHandler(cfg.Lifecycle))
	r.Delete("/doctors/{id}", deleteDoctorHandler(cfg.Lifecycle))

	// Slot lifecycle
	r.Post("/slots", createSlotHandler(cfg.Lifecycle))
	r.Get("/slots", listSlotsHandler(cfg.Lifecycle))
	r.Patch("/slots/{id}", updateSlotHandler(cfg.Lifecycle))
	r.Delete("/slots/{id}", deleteSlotHandler(cfg.Lifecycle))

	// Booking
	r.Post("/appointments", bookHandler(cfg.Booking))
	r.Get("/appointments", listAppointmentsHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Booking))

	return r
}
