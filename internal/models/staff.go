package models

// Role represents municipal staff roles
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleCrew       Role = "crew"
	RoleViewer     Role = "viewer"
)

// Permissions checked by the report API.
const (
	PermViewReports   = "view_reports"
	PermUpdateReports = "update_reports"
	PermExportReports = "export_reports"
)

// Staff is a municipal account allowed to work the report queue.
type Staff struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
	Role         Role   `yaml:"role" json:"role"`
	Disabled     bool   `yaml:"disabled" json:"disabled"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	Staff     Staff  `json:"staff"`
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleCrew, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission reports whether the role may perform action.
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleSupervisor:
		return action == PermViewReports || action == PermUpdateReports || action == PermExportReports
	case RoleCrew:
		return action == PermViewReports || action == PermUpdateReports
	case RoleViewer:
		return action == PermViewReports
	default:
		return false
	}
}
