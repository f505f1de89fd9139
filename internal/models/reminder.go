package models

import (
	"time"
)

// Priority is the urgency assigned to a reminder when it is created.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValidPriority checks if a priority is valid
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ReminderType is the closed set of reminder kinds.
type ReminderType string

const (
	ReminderMaintenanceDue      ReminderType = "maintenance_due"
	ReminderPEPDue              ReminderType = "pep_due"
	ReminderDocumentExpiry      ReminderType = "document_expiry"
	ReminderInsuranceRenewal    ReminderType = "insurance_renewal"
	ReminderRegistrationRenewal ReminderType = "registration_renewal"
	ReminderLicenseExpiry       ReminderType = "license_expiry"
)

// AllReminderTypes lists every reminder kind in display order.
var AllReminderTypes = []ReminderType{
	ReminderMaintenanceDue,
	ReminderPEPDue,
	ReminderDocumentExpiry,
	ReminderInsuranceRenewal,
	ReminderRegistrationRenewal,
	ReminderLicenseExpiry,
}

// ReminderTypeConfig holds the display data and default lead times of a reminder kind.
type ReminderTypeConfig struct {
	Label               string `json:"label"`
	Color               string `json:"color"`
	Icon                string `json:"icon"`
	DefaultReminderDays []int  `json:"default_reminder_days"`
}

// Config returns the configuration of t. ok is false for unknown types.
func (t ReminderType) Config() (cfg ReminderTypeConfig, ok bool) {
	switch t {
	case ReminderMaintenanceDue:
		return ReminderTypeConfig{Label: "Maintenance due", Color: "#F59E0B", Icon: "wrench", DefaultReminderDays: []int{30, 14, 7, 1}}, true
	case ReminderPEPDue:
		return ReminderTypeConfig{Label: "PEP inspection due", Color: "#EF4444", Icon: "clipboard-check", DefaultReminderDays: []int{30, 14, 7, 1}}, true
	case ReminderDocumentExpiry:
		return ReminderTypeConfig{Label: "Document expiry", Color: "#6366F1", Icon: "file-text", DefaultReminderDays: []int{30, 7}}, true
	case ReminderInsuranceRenewal:
		return ReminderTypeConfig{Label: "Insurance renewal", Color: "#10B981", Icon: "shield", DefaultReminderDays: []int{60, 30, 7}}, true
	case ReminderRegistrationRenewal:
		return ReminderTypeConfig{Label: "Registration renewal", Color: "#3B82F6", Icon: "id-card", DefaultReminderDays: []int{30, 14, 7}}, true
	case ReminderLicenseExpiry:
		return ReminderTypeConfig{Label: "Driver licence expiry", Color: "#8B5CF6", Icon: "user-check", DefaultReminderDays: []int{60, 30, 14}}, true
	default:
		return ReminderTypeConfig{}, false
	}
}

// IsValidReminderType checks if a reminder type is part of the closed set
func IsValidReminderType(t ReminderType) bool {
	_, ok := t.Config()
	return ok
}

// Reminder is a due-date-bearing reminder for a vehicle.
type Reminder struct {
	ID           string       `json:"id" bson:"_id"`
	Type         ReminderType `json:"type" bson:"type"`
	Title        string       `json:"title" bson:"title"`
	Notes        string       `json:"notes,omitempty" bson:"notes,omitempty"`
	VehicleID    string       `json:"vehicle_id" bson:"vehicle_id"`
	VehicleName  string       `json:"vehicle_name" bson:"vehicle_name"`
	DueDate      time.Time    `json:"due_date" bson:"due_date"`
	Priority     Priority     `json:"priority" bson:"priority"`
	ReminderDays []int        `json:"reminder_days" bson:"reminder_days"`
	IsCompleted  bool         `json:"is_completed" bson:"is_completed"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	SourceFormID string       `json:"source_form_id,omitempty" bson:"source_form_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the reminder.
func (r *Reminder) Clone() *Reminder {
	out := *r
	out.ReminderDays = append([]int(nil), r.ReminderDays...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
