package pep

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
)

// ReminderCreator is the part of the reminder engine a finalized form needs.
type ReminderCreator interface {
	CreateReminder(ctx context.Context, in reminders.CreateInput) (*models.Reminder, error)
	Delete(ctx context.Context, id string) error
}

// ComponentUpdate sets the status of one component of a form.
type ComponentUpdate struct {
	SectionID string                 `json:"section_id"`
	Code      int                    `json:"code"`
	Status    models.ComponentStatus `json:"status"`
}

// FormService persists maintenance forms under db.KeyForms.
type FormService struct {
	store     db.Store
	catalog   *Catalog
	reminders ReminderCreator
	ids       models.IDGenerator
	clock     models.Clock
	log       log.FieldLogger
	metrics   *metrics.Metrics

	mu sync.Mutex
}

// ServiceOption configures a FormService.
type ServiceOption func(*FormService)

// WithCatalog replaces the built-in reference catalogue.
func WithCatalog(c *Catalog) ServiceOption {
	return func(s *FormService) { s.catalog = c }
}

func WithFormIDGenerator(g models.IDGenerator) ServiceOption {
	return func(s *FormService) { s.ids = g }
}

func WithFormClock(c models.Clock) ServiceOption {
	return func(s *FormService) { s.clock = c }
}

func WithFormLogger(l log.FieldLogger) ServiceOption {
	return func(s *FormService) { s.log = l }
}

func WithFormMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *FormService) { s.metrics = m }
}

// NewFormService creates a form service. rc receives the reminder of every
// finalized form.
func NewFormService(store db.Store, rc ReminderCreator, opts ...ServiceOption) *FormService {
	s := &FormService{
		store:     store,
		catalog:   DefaultCatalog(),
		reminders: rc,
		ids:       models.UUIDGenerator{},
		clock:     models.RealClock{},
		log:       log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the reference catalogue new forms are built from.
func (s *FormService) Catalog() *Catalog { return s.catalog }

// CreateForm stores a new draft form for vehicleID.
func (s *FormService) CreateForm(ctx context.Context, vehicleID string) (*models.MaintenanceForm, error) {
	form, err := CreateEmptyForm(vehicleID, s.catalog.Sections, s.ids, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return nil, err
	}
	if formIndex(items, form.ID) >= 0 {
		return nil, fmt.Errorf("%w: form id %s already exists", models.ErrValidation, form.ID)
	}
	if err := db.SaveCollection(ctx, s.store, db.KeyForms, append(items, *form)); err != nil {
		return nil, err
	}

	s.metrics.FormCreated()
	s.log.WithFields(log.Fields{
		"form_id":    form.ID,
		"vehicle_id": vehicleID,
		"components": s.catalog.Components(),
	}).Info("Created maintenance form")
	return form, nil
}

// GetForm returns the form with the given id.
func (s *FormService) GetForm(ctx context.Context, id string) (*models.MaintenanceForm, error) {
	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return nil, err
	}
	idx := formIndex(items, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: form %s", models.ErrNotFound, id)
	}
	return &items[idx], nil
}

// ListForms returns the forms of vehicleID in creation order, or every form
// when vehicleID is empty.
func (s *FormService) ListForms(ctx context.Context, vehicleID string) ([]models.MaintenanceForm, error) {
	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return nil, err
	}
	out := []models.MaintenanceForm{}
	for _, f := range items {
		if vehicleID == "" || f.VehicleID == vehicleID {
			out = append(out, f)
		}
	}
	return out, nil
}

// SetComponentStatus updates one component of a draft form.
func (s *FormService) SetComponentStatus(ctx context.Context, formID, sectionID string, code int, status models.ComponentStatus) (*models.MaintenanceForm, error) {
	return s.UpdateComponents(ctx, formID, []ComponentUpdate{{SectionID: sectionID, Code: code, Status: status}})
}

// UpdateComponents applies every update to a draft form and recomputes its
// defect totals. Either all updates apply or none do.
func (s *FormService) UpdateComponents(ctx context.Context, formID string, updates []ComponentUpdate) (*models.MaintenanceForm, error) {
	for _, u := range updates {
		if !models.IsValidComponentStatus(u.Status) {
			return nil, fmt.Errorf("%w: unknown component status %q", models.ErrValidation, u.Status)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return nil, err
	}
	idx := formIndex(items, formID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: form %s", models.ErrNotFound, formID)
	}
	form := items[idx].Clone()
	if form.Status != models.FormStatusDraft {
		return nil, fmt.Errorf("%w: form %s is %s and can no longer be edited", models.ErrValidation, formID, form.Status)
	}

	for _, u := range updates {
		c := findComponent(form, u.SectionID, u.Code)
		if c == nil {
			return nil, fmt.Errorf("%w: form %s has no component %d in section %q", models.ErrNotFound, formID, u.Code, u.SectionID)
		}
		c.Status = u.Status
	}
	Recalculate(form)
	form.UpdatedAt = s.clock.Now()

	items[idx] = *form
	if err := db.SaveCollection(ctx, s.store, db.KeyForms, items); err != nil {
		return nil, err
	}
	return form, nil
}

// FinalizeForm moves a draft form to completed, computes the next inspection
// date for vehicle and creates the matching pep_due reminder. If the form
// cannot be saved the reminder is deleted again.
func (s *FormService) FinalizeForm(ctx context.Context, formID string, vehicle models.Vehicle, now time.Time) (*models.MaintenanceForm, *models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return nil, nil, err
	}
	idx := formIndex(items, formID)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: form %s", models.ErrNotFound, formID)
	}
	form := items[idx].Clone()
	if vehicle.ID != "" && vehicle.ID != form.VehicleID {
		return nil, nil, fmt.Errorf("%w: form %s belongs to vehicle %s, not %s", models.ErrValidation, formID, form.VehicleID, vehicle.ID)
	}

	next, err := ComputeNextMaintenanceDate(vehicle.GrossVehicleWeightKg, vehicle.AnnualDistanceKm, now)
	if err != nil {
		return nil, nil, err
	}
	if err := Transition(ctx, form, models.FormStatusCompleted); err != nil {
		return nil, nil, err
	}
	Recalculate(form)
	form.NextMaintenanceDate = &next
	form.UpdatedAt = now

	priority := models.PriorityMedium
	if form.TotalMajorDefects > 0 {
		priority = models.PriorityHigh
	}
	reminder, err := s.reminders.CreateReminder(ctx, reminders.CreateInput{
		Type:         models.ReminderPEPDue,
		VehicleID:    form.VehicleID,
		VehicleName:  vehicle.Name,
		DueDate:      next,
		Priority:     priority,
		Notes:        fmt.Sprintf("Previous inspection: %d minor, %d major defects", form.TotalMinorDefects, form.TotalMajorDefects),
		SourceFormID: form.ID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating reminder for form %s: %w", formID, err)
	}
	form.ReminderID = reminder.ID

	items[idx] = *form
	if err := db.SaveCollection(ctx, s.store, db.KeyForms, items); err != nil {
		if derr := s.reminders.Delete(ctx, reminder.ID); derr != nil {
			s.log.WithError(derr).WithField("reminder_id", reminder.ID).Error("Failed to remove reminder of unsaved form")
		}
		return nil, nil, err
	}

	s.metrics.FormFinalized(form.TotalMinorDefects, form.TotalMajorDefects)
	s.log.WithFields(log.Fields{
		"form_id":          form.ID,
		"vehicle_id":       form.VehicleID,
		"minor_defects":    form.TotalMinorDefects,
		"major_defects":    form.TotalMajorDefects,
		"next_maintenance": next.Format(time.DateOnly),
		"reminder_id":      reminder.ID,
	}).Info("Finalized maintenance form")
	return form, reminder, nil
}

// SignForm records the technician's signature on a completed form.
func (s *FormService) SignForm(ctx context.Context, formID, technician string, now time.Time) (*models.MaintenanceForm, error) {
	if technician == "" {
		return nil, fmt.Errorf("%w: technician is required", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return nil, err
	}
	idx := formIndex(items, formID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: form %s", models.ErrNotFound, formID)
	}
	form := items[idx].Clone()
	if err := Transition(ctx, form, models.FormStatusSigned); err != nil {
		return nil, err
	}
	form.SignedBy = technician
	form.SignedAt = &now
	form.UpdatedAt = now

	items[idx] = *form
	if err := db.SaveCollection(ctx, s.store, db.KeyForms, items); err != nil {
		return nil, err
	}

	s.metrics.FormSigned()
	s.log.WithFields(log.Fields{"form_id": formID, "signed_by": technician}).Info("Signed maintenance form")
	return form, nil
}

// DeleteForm removes a form. Its reminder, if any, is kept.
func (s *FormService) DeleteForm(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := db.LoadCollection[models.MaintenanceForm](ctx, s.store, db.KeyForms)
	if err != nil {
		return err
	}
	idx := formIndex(items, id)
	if idx < 0 {
		return fmt.Errorf("%w: form %s", models.ErrNotFound, id)
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := db.SaveCollection(ctx, s.store, db.KeyForms, items); err != nil {
		return err
	}
	s.log.WithField("form_id", id).Info("Deleted maintenance form")
	return nil
}

func formIndex(items []models.MaintenanceForm, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func findComponent(f *models.MaintenanceForm, sectionID string, code int) *models.Component {
	for i := range f.Sections {
		if f.Sections[i].ID != sectionID {
			continue
		}
		for j := range f.Sections[i].Components {
			if f.Sections[i].Components[j].Code == code {
				return &f.Sections[i].Components[j]
			}
		}
	}
	return nil
}
