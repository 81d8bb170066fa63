package enums

import "fmt"

// StaffRole identifies the back-office role carried in admin tokens.
type StaffRole string

const (
	StaffRoleAdmin   StaffRole = "admin"
	StaffRoleSupport StaffRole = "support"
)

func (r StaffRole) IsValid() bool {
	switch r {
	case StaffRoleAdmin, StaffRoleSupport:
		return true
	default:
		return false
	}
}

func (r StaffRole) String() string {
	return string(r)
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(raw string) (StaffRole, error) {
	role := StaffRole(raw)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid staff role %q", raw)
	}
	return role, nil
}
