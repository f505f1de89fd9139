package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// RouterConfig wires the API handlers and middleware.
type RouterConfig struct {
	Reminders *ReminderHandler
	Forms     *FormHandler
	Schedule  *ScheduleHandler

	// Auth protects every /api route; nil leaves the API open.
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimitMiddleware
	RateLimit   config.RateLimitConfig
	Metrics     http.Handler
	Logger      log.FieldLogger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	if cfg.Logger != nil {
		r.Use(mux.MiddlewareFunc(middleware.RequestLogger(cfg.Logger)))
	}
	if cfg.RateLimiter != nil {
		r.Use(mux.MiddlewareFunc(cfg.RateLimiter.RateLimit(cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds)))
	}

	r.HandleFunc("/health", health).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	if cfg.Auth != nil {
		api.Use(cfg.Auth.Authenticate)
	}
	protect := func(perm string, h http.HandlerFunc) http.Handler {
		if cfg.Auth == nil {
			return h
		}
		return cfg.Auth.RequirePermission(perm)(h)
	}

	if h := cfg.Reminders; h != nil {
		api.Handle("/reminders", protect(models.PermManageReminders, h.Create)).Methods(http.MethodPost)
		api.Handle("/reminders", protect(models.PermViewReminders, h.List)).Methods(http.MethodGet)
		api.Handle("/reminders/upcoming", protect(models.PermViewReminders, h.Upcoming)).Methods(http.MethodGet)
		api.Handle("/reminders/stats", protect(models.PermViewReminders, h.Stats)).Methods(http.MethodGet)
		api.Handle("/reminders/types", protect(models.PermViewReminders, h.Types)).Methods(http.MethodGet)
		api.Handle("/reminders/{id}", protect(models.PermViewReminders, h.Get)).Methods(http.MethodGet)
		api.Handle("/reminders/{id}", protect(models.PermManageReminders, h.Delete)).Methods(http.MethodDelete)
		api.Handle("/reminders/{id}/complete", protect(models.PermManageReminders, h.Complete)).Methods(http.MethodPost)
	}

	if h := cfg.Forms; h != nil {
		api.Handle("/forms", protect(models.PermEditForms, h.Create)).Methods(http.MethodPost)
		api.Handle("/forms", protect(models.PermViewForms, h.List)).Methods(http.MethodGet)
		api.Handle("/forms/catalog", protect(models.PermViewForms, h.Catalog)).Methods(http.MethodGet)
		api.Handle("/forms/{id}", protect(models.PermViewForms, h.Get)).Methods(http.MethodGet)
		api.Handle("/forms/{id}", protect(models.PermEditForms, h.Delete)).Methods(http.MethodDelete)
		api.Handle("/forms/{id}/components", protect(models.PermEditForms, h.UpdateComponents)).Methods(http.MethodPut)
		api.Handle("/forms/{id}/finalize", protect(models.PermEditForms, h.Finalize)).Methods(http.MethodPost)
		api.Handle("/forms/{id}/sign", protect(models.PermSignForms, h.Sign)).Methods(http.MethodPost)
	}

	if h := cfg.Schedule; h != nil {
		api.Handle("/schedule/next-date", protect(models.PermViewForms, h.NextDate)).Methods(http.MethodPost)
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
