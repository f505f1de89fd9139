package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
)

// DefaultUpcomingDays is the window of GET /api/reminders/upcoming without ?days=.
const DefaultUpcomingDays = 7

// ReminderService is the reminder engine as seen by the API.
type ReminderService interface {
	CreateReminder(ctx context.Context, in reminders.CreateInput) (*models.Reminder, error)
	CompleteReminder(ctx context.Context, id string, now time.Time) (*models.Reminder, error)
	Get(ctx context.Context, id string) (*models.Reminder, error)
	List(ctx context.Context) ([]models.Reminder, error)
	Delete(ctx context.Context, id string) error
	GetUpcoming(ctx context.Context, windowDays int, now time.Time) ([]models.Reminder, error)
	GetStats(ctx context.Context, now time.Time) (reminders.Stats, error)
	GetByVehicle(ctx context.Context, vehicleID string) ([]models.Reminder, error)
}

// ReminderHandler serves /api/reminders.
type ReminderHandler struct {
	svc   ReminderService
	clock models.Clock
}

// NewReminderHandler creates a reminder handler. A nil clock uses the real time.
func NewReminderHandler(svc ReminderService, clock models.Clock) *ReminderHandler {
	if clock == nil {
		clock = models.RealClock{}
	}
	return &ReminderHandler{svc: svc, clock: clock}
}

type createReminderRequest struct {
	Type         models.ReminderType `json:"type"`
	Title        string              `json:"title"`
	Notes        string              `json:"notes"`
	VehicleID    string              `json:"vehicle_id"`
	VehicleName  string              `json:"vehicle_name"`
	DueDate      string              `json:"due_date"`
	Priority     models.Priority     `json:"priority"`
	ReminderDays []int               `json:"reminder_days"`
}

// Create handles POST /api/reminders.
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rem, err := h.svc.CreateReminder(r.Context(), reminders.CreateInput{
		Type:         req.Type,
		Title:        req.Title,
		Notes:        req.Notes,
		VehicleID:    req.VehicleID,
		VehicleName:  req.VehicleName,
		DueDate:      due,
		Priority:     req.Priority,
		ReminderDays: req.ReminderDays,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminders.NewView(*rem, h.clock.Now()))
}

// List handles GET /api/reminders[?vehicle_id=].
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		items []models.Reminder
		err   error
	)
	if vehicleID := r.URL.Query().Get("vehicle_id"); vehicleID != "" {
		items, err = h.svc.GetByVehicle(r.Context(), vehicleID)
	} else {
		items, err = h.svc.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders.NewViews(items, h.clock.Now()))
}

// Upcoming handles GET /api/reminders/upcoming?days=N.
func (h *ReminderHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days := DefaultUpcomingDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: days must be an integer, got %q", models.ErrValidation, v))
			return
		}
		days = n
	}

	now := h.clock.Now()
	items, err := h.svc.GetUpcoming(r.Context(), days, now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders.NewViews(items, now))
}

// Stats handles GET /api/reminders/stats.
func (h *ReminderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context(), h.clock.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Types handles GET /api/reminders/types.
func (h *ReminderHandler) Types(w http.ResponseWriter, r *http.Request) {
	type typeInfo struct {
		Type models.ReminderType `json:"type"`
		models.ReminderTypeConfig
	}
	out := make([]typeInfo, 0, len(models.AllReminderTypes))
	for _, t := range models.AllReminderTypes {
		cfg, _ := t.Config()
		out = append(out, typeInfo{Type: t, ReminderTypeConfig: cfg})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/reminders/{id}.
func (h *ReminderHandler) Get(w http.ResponseWriter, r *http.Request) {
	rem, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders.NewView(*rem, h.clock.Now()))
}

// Complete handles POST /api/reminders/{id}/complete.
func (h *ReminderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	rem, err := h.svc.CompleteReminder(r.Context(), mux.Vars(r)["id"], now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders.NewView(*rem, now))
}

// Delete handles DELETE /api/reminders/{id}.
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
