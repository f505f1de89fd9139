package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pep"
)

// FormService is the maintenance form service as seen by the API.
type FormService interface {
	CreateForm(ctx context.Context, vehicleID string) (*models.MaintenanceForm, error)
	GetForm(ctx context.Context, id string) (*models.MaintenanceForm, error)
	ListForms(ctx context.Context, vehicleID string) ([]models.MaintenanceForm, error)
	UpdateComponents(ctx context.Context, formID string, updates []pep.ComponentUpdate) (*models.MaintenanceForm, error)
	FinalizeForm(ctx context.Context, formID string, vehicle models.Vehicle, now time.Time) (*models.MaintenanceForm, *models.Reminder, error)
	SignForm(ctx context.Context, formID, technician string, now time.Time) (*models.MaintenanceForm, error)
	DeleteForm(ctx context.Context, id string) error
	Catalog() *pep.Catalog
}

// FormHandler serves /api/forms.
type FormHandler struct {
	svc   FormService
	clock models.Clock
}

// NewFormHandler creates a form handler. A nil clock uses the real time.
func NewFormHandler(svc FormService, clock models.Clock) *FormHandler {
	if clock == nil {
		clock = models.RealClock{}
	}
	return &FormHandler{svc: svc, clock: clock}
}

type createFormRequest struct {
	VehicleID string `json:"vehicle_id"`
}

type updateComponentsRequest struct {
	Components []pep.ComponentUpdate `json:"components"`
}

type finalizeFormRequest struct {
	Vehicle models.Vehicle `json:"vehicle"`
}

type finalizeFormResponse struct {
	Form     *models.MaintenanceForm `json:"form"`
	Reminder *models.Reminder        `json:"reminder"`
}

type signFormRequest struct {
	Technician string `json:"technician"`
}

// Create handles POST /api/forms.
func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFormRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	form, err := h.svc.CreateForm(r.Context(), req.VehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, form)
}

// List handles GET /api/forms[?vehicle_id=].
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.ListForms(r.Context(), r.URL.Query().Get("vehicle_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

// Catalog handles GET /api/forms/catalog.
func (h *FormHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog().Sections)
}

// Get handles GET /api/forms/{id}.
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.GetForm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// UpdateComponents handles PUT /api/forms/{id}/components.
func (h *FormHandler) UpdateComponents(w http.ResponseWriter, r *http.Request) {
	var req updateComponentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Components) == 0 {
		writeError(w, r, fmt.Errorf("%w: components is required", models.ErrValidation))
		return
	}
	form, err := h.svc.UpdateComponents(r.Context(), mux.Vars(r)["id"], req.Components)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// Finalize handles POST /api/forms/{id}/finalize.
func (h *FormHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeFormRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	form, rem, err := h.svc.FinalizeForm(r.Context(), mux.Vars(r)["id"], req.Vehicle, h.clock.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeFormResponse{Form: form, Reminder: rem})
}

// Sign handles POST /api/forms/{id}/sign. Without a technician in the body the
// authenticated user's name is recorded.
func (h *FormHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req signFormRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Technician == "" {
		if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
			req.Technician = claims.Username
		}
	}
	form, err := h.svc.SignForm(r.Context(), mux.Vars(r)["id"], req.Technician, h.clock.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// Delete handles DELETE /api/forms/{id}.
func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteForm(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
