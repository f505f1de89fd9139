package models

// Role represents user roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleOperator   Role = "operator"
	RoleViewer     Role = "viewer"
)

// Permissions checked by the API.
const (
	PermViewReminders   = "view_reminders"
	PermManageReminders = "manage_reminders"
	PermViewForms       = "view_forms"
	PermEditForms       = "edit_forms"
	PermSignForms       = "sign_forms"
)

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleTechnician, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role has permission for a specific action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != PermSignForms
	case RoleTechnician:
		return action == PermViewReminders || action == PermViewForms ||
			action == PermEditForms || action == PermSignForms
	case RoleOperator:
		return action == PermViewReminders || action == PermManageReminders ||
			action == PermViewForms || action == PermEditForms
	case RoleViewer:
		return action == PermViewReminders || action == PermViewForms
	default:
		return false
	}
}
