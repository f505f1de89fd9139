// Package pep implements the preventive maintenance programme (PEP): the
// regulatory inspection interval, inspection forms and their defect totals.
package pep

import (
	"fmt"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/duedate"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Inspection interval policy.
const (
	// HeavyVehicleWeightKg is the gross vehicle weight rating from which the
	// heavy-vehicle schedule applies.
	HeavyVehicleWeightKg = 4500.0
	// LowMileageKm is the annual distance under which a heavy vehicle keeps
	// the standard interval.
	LowMileageKm = 20000.0

	StandardIntervalMonths = 6
	HeavyIntervalMonths    = 3
)

// IntervalMonths returns the inspection interval for a vehicle.
// annualDistanceKm is nil when the distance is unknown.
func IntervalMonths(grossVehicleWeightKg float64, annualDistanceKm *float64) int {
	if grossVehicleWeightKg < HeavyVehicleWeightKg {
		return StandardIntervalMonths
	}
	if annualDistanceKm != nil && *annualDistanceKm < LowMileageKm {
		return StandardIntervalMonths
	}
	return HeavyIntervalMonths
}

// ComputeNextMaintenanceDate returns the date of the next required inspection,
// counted in calendar months from the date of from.
func ComputeNextMaintenanceDate(grossVehicleWeightKg float64, annualDistanceKm *float64, from time.Time) (time.Time, error) {
	if !(grossVehicleWeightKg > 0) {
		return time.Time{}, fmt.Errorf("%w: gross vehicle weight must be positive, got %v", models.ErrValidation, grossVehicleWeightKg)
	}
	if annualDistanceKm != nil && !(*annualDistanceKm >= 0) {
		return time.Time{}, fmt.Errorf("%w: annual distance must not be negative, got %v", models.ErrValidation, *annualDistanceKm)
	}
	if from.IsZero() {
		return time.Time{}, fmt.Errorf("%w: start date is required", models.ErrValidation)
	}
	return duedate.AddMonths(from, IntervalMonths(grossVehicleWeightKg, annualDistanceKm)), nil
}

// DefectSummary counts defective components.
type DefectSummary struct {
	Minor int `json:"minor"`
	Major int `json:"major"`
}

// Add returns the sum of two summaries.
func (d DefectSummary) Add(o DefectSummary) DefectSummary {
	return DefectSummary{Minor: d.Minor + o.Minor, Major: d.Major + o.Major}
}

// AggregateDefects counts Min and Maj components across every section.
func AggregateDefects(sections []models.Section) DefectSummary {
	var sum DefectSummary
	for _, s := range sections {
		for _, c := range s.Components {
			switch c.Status {
			case models.ComponentMinorDefect:
				sum.Minor++
			case models.ComponentMajorDefect:
				sum.Major++
			}
		}
	}
	return sum
}

// Recalculate rewrites the defect totals of f from its component statuses.
// It is the only code that writes those totals.
func Recalculate(f *models.MaintenanceForm) {
	sum := AggregateDefects(f.Sections)
	f.TotalMinorDefects = sum.Minor
	f.TotalMajorDefects = sum.Major
}

// CreateEmptyForm builds a draft form for vehicleID from a deep copy of the
// reference sections, with every component reset to SO.
func CreateEmptyForm(vehicleID string, reference []models.Section, ids models.IDGenerator, now time.Time) (*models.MaintenanceForm, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle id is required", models.ErrValidation)
	}

	sections := models.CloneSections(reference)
	if sections == nil {
		sections = []models.Section{}
	}
	for i := range sections {
		for j := range sections[i].Components {
			sections[i].Components[j].Status = models.ComponentNotApplicable
		}
	}

	return &models.MaintenanceForm{
		ID:        ids.New(),
		VehicleID: vehicleID,
		Sections:  sections,
		Status:    models.FormStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
