// internal/models/role.go
package models

import "strings"

// Role is the caller's role inside a tenant.
type Role int

const (
	RoleOwner Role = iota
	RoleAdmin
	RoleTeacher
	RoleStaff

	// RoleCount is the number of roles; policy tables are sized by it.
	RoleCount
)

var roleNames = [RoleCount]string{
	RoleOwner:   "owner",
	RoleAdmin:   "admin",
	RoleTeacher: "teacher",
	RoleStaff:   "staff",
}

func (r Role) String() string {
	if r < 0 || r >= RoleCount {
		return "unknown"
	}
	return roleNames[r]
}

// ParseRole maps a loose role name to a Role. Unknown names get the most
// restricted role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner", "school_owner", "proprietor", "super_admin", "superadmin":
		return RoleOwner
	case "admin", "administrator", "school_admin", "principal", "headteacher":
		return RoleAdmin
	case "teacher", "class_teacher", "subject_teacher", "instructor":
		return RoleTeacher
	default:
		return RoleStaff
	}
}

// MarshalText renders the role name so it round-trips through job variables.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}
