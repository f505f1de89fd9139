package models

import (
	"time"
)

// FormStatus is the lifecycle state of a maintenance form.
type FormStatus string

const (
	FormStatusDraft     FormStatus = "draft"
	FormStatusCompleted FormStatus = "completed"
	FormStatusSigned    FormStatus = "signed"
)

// IsValidFormStatus checks if a form status is valid
func IsValidFormStatus(s FormStatus) bool {
	switch s {
	case FormStatusDraft, FormStatusCompleted, FormStatusSigned:
		return true
	default:
		return false
	}
}

// Rank orders statuses along draft -> completed -> signed. Unknown statuses rank -1.
func (s FormStatus) Rank() int {
	switch s {
	case FormStatusDraft:
		return 0
	case FormStatusCompleted:
		return 1
	case FormStatusSigned:
		return 2
	default:
		return -1
	}
}

// ComponentStatus is the inspection verdict for a single component.
type ComponentStatus string

const (
	ComponentNotApplicable ComponentStatus = "SO"
	ComponentConforms      ComponentStatus = "C"
	ComponentMinorDefect   ComponentStatus = "Min"
	ComponentMajorDefect   ComponentStatus = "Maj"
)

// IsValidComponentStatus checks if a component status is valid
func IsValidComponentStatus(s ComponentStatus) bool {
	switch s {
	case ComponentNotApplicable, ComponentConforms, ComponentMinorDefect, ComponentMajorDefect:
		return true
	default:
		return false
	}
}

// Component is one inspected part, identified by its reference code.
type Component struct {
	Code   int             `json:"code" bson:"code" toml:"code"`
	Name   string          `json:"name" bson:"name" toml:"name"`
	Status ComponentStatus `json:"status" bson:"status" toml:"-"`
}

// Section groups the components of one inspection area.
type Section struct {
	ID         string      `json:"id" bson:"id" toml:"id"`
	Title      string      `json:"title" bson:"title" toml:"title"`
	Components []Component `json:"components" bson:"components" toml:"components"`
}

// MaintenanceForm is a preventive maintenance (PEP) inspection form for one vehicle.
type MaintenanceForm struct {
	ID                  string     `json:"id" bson:"_id"`
	VehicleID           string     `json:"vehicle_id" bson:"vehicle_id"`
	Sections            []Section  `json:"sections" bson:"sections"`
	Status              FormStatus `json:"status" bson:"status"`
	TotalMinorDefects   int        `json:"total_minor_defects" bson:"total_minor_defects"`
	TotalMajorDefects   int        `json:"total_major_defects" bson:"total_major_defects"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date,omitempty" bson:"next_maintenance_date,omitempty"`
	ReminderID          string     `json:"reminder_id,omitempty" bson:"reminder_id,omitempty"`
	SignedBy            string     `json:"signed_by,omitempty" bson:"signed_by,omitempty"`
	SignedAt            *time.Time `json:"signed_at,omitempty" bson:"signed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the form.
func (f *MaintenanceForm) Clone() *MaintenanceForm {
	out := *f
	out.Sections = CloneSections(f.Sections)
	if f.NextMaintenanceDate != nil {
		d := *f.NextMaintenanceDate
		out.NextMaintenanceDate = &d
	}
	if f.SignedAt != nil {
		d := *f.SignedAt
		out.SignedAt = &d
	}
	return &out
}

// CloneSections deep-copies a section list including every component slice.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s
		out[i].Components = append([]Component(nil), s.Components...)
	}
	return out
}
