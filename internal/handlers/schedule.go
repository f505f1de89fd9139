package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pep"
)

type nextDateRequest struct {
	GrossVehicleWeightKg float64  `json:"gross_vehicle_weight_kg"`
	AnnualDistanceKm     *float64 `json:"annual_distance_km"`
	From                 string   `json:"from"` // today when empty
}

type nextDateResponse struct {
	NextMaintenanceDate string `json:"next_maintenance_date"`
	IntervalMonths      int    `json:"interval_months"`
}

// ScheduleHandler serves the inspection interval calculator.
type ScheduleHandler struct {
	clock models.Clock
}

func NewScheduleHandler(clock models.Clock) *ScheduleHandler {
	if clock == nil {
		clock = models.RealClock{}
	}
	return &ScheduleHandler{clock: clock}
}

// NextDate handles POST /api/schedule/next-date.
func (h *ScheduleHandler) NextDate(w http.ResponseWriter, r *http.Request) {
	var req nextDateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	from := h.clock.Now()
	if req.From != "" {
		t, err := parseDate("from", req.From)
		if err != nil {
			writeError(w, r, err)
			return
		}
		from = t
	}

	next, err := pep.ComputeNextMaintenanceDate(req.GrossVehicleWeightKg, req.AnnualDistanceKm, from)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nextDateResponse{
		NextMaintenanceDate: next.Format(time.DateOnly),
		IntervalMonths:      pep.IntervalMonths(req.GrossVehicleWeightKg, req.AnnualDistanceKm),
	})
}
